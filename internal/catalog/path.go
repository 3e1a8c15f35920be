package catalog

import (
	"fmt"
	"strings"
)

// RelativePath is the destination directory relative to the daemon's root:
// "movies/{title}" or "shows/{series}/Season NN".
func RelativePath(item Item) (string, error) {
	if err := Validate(item); err != nil {
		return "", err
	}
	var p string
	switch it := item.(type) {
	case Movie:
		p = "movies/" + it.Info.Title()
	case Episode:
		p = fmt.Sprintf("shows/%s/Season %02d", it.Series.Title(), it.Episode.Season.Int())
	}
	return collapse(p), nil
}

// OutputFilename is "{title}.{extension}"; the dot is dropped when the
// upstream did not report an extension.
func OutputFilename(item Item) (string, error) {
	if err := Validate(item); err != nil {
		return "", err
	}
	var title, ext string
	switch it := item.(type) {
	case Movie:
		title, ext = it.Info.Title(), it.Info.Extension()
	case Episode:
		title, ext = it.Episode.Title.String(), it.Episode.ContainerExtension.String()
	}
	if ext == "" {
		return title, nil
	}
	return title + "." + ext, nil
}

// OutputPath joins RelativePath and OutputFilename; this is the daemon's
// "out" option.
func OutputPath(item Item) (string, error) {
	dir, err := RelativePath(item)
	if err != nil {
		return "", err
	}
	name, err := OutputFilename(item)
	if err != nil {
		return "", err
	}
	return collapse(dir + "/" + name), nil
}

// collapse squeezes runs of '/' left behind by blank metadata and trims a
// trailing separator. No other escaping is done.
func collapse(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	prev := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prev {
				continue
			}
			prev = true
		} else {
			prev = false
		}
		b.WriteByte(c)
	}
	out := b.String()
	if len(out) > 1 {
		out = strings.TrimSuffix(out, "/")
	}
	return out
}
