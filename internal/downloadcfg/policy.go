// Package downloadcfg holds the daemon options every launch starts from.
package downloadcfg

import (
	"fmt"
	"strings"
)

// CollisionPolicy defines how the daemon treats an existing target file.
// Values: "error" | "overwrite" | "rename".
type CollisionPolicy string

const (
	CollisionError     CollisionPolicy = "error"
	CollisionOverwrite CollisionPolicy = "overwrite"
	CollisionRename    CollisionPolicy = "rename"
)

// ParseCollisionPolicy converts a string to a CollisionPolicy; empty means
// overwrite.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch p := CollisionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return CollisionOverwrite, nil
	case CollisionOverwrite, CollisionRename, CollisionError:
		return p, nil
	default:
		return "", fmt.Errorf("unknown collision policy %q", s)
	}
}

// options maps the policy onto aria2's overwrite/renaming switches.
func (p CollisionPolicy) options() map[string]any {
	switch p {
	case CollisionRename:
		return map[string]any{"allow-overwrite": false, "auto-file-renaming": true}
	case CollisionError:
		return map[string]any{"allow-overwrite": false, "auto-file-renaming": false}
	default:
		return map[string]any{"allow-overwrite": true, "auto-file-renaming": false}
	}
}

// Baseline returns a fresh copy of the fixed launch options for policy.
// With the default overwrite policy this is continue, pipelining,
// allow-overwrite, no auto renaming, retry-wait=5 and max-tries=10.
func Baseline(p CollisionPolicy) map[string]any {
	out := map[string]any{
		"continue":               true,
		"enable-http-pipelining": true,
		"retry-wait":             5,
		"max-tries":              10,
	}
	for k, v := range p.options() {
		out[k] = v
	}
	return out
}

// Merge layers overrides on top of base into a new map; overrides win.
func Merge(base map[string]any, overrides ...map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, o := range overrides {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}
