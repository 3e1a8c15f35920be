package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/lionzhd/lionz/internal/xtream"
)

// DownloadURL builds the upstream content URL:
// {base}/{movie|series}/{username}/{password}/{id}.{extension}
func DownloadURL(creds xtream.Credentials, item Item) (string, error) {
	if err := Validate(item); err != nil {
		return "", err
	}
	var segment, id, ext string
	switch it := item.(type) {
	case Movie:
		segment, id, ext = "movie", strconv.Itoa(it.Info.StreamID()), it.Info.Extension()
	case Episode:
		segment, id, ext = "series", it.Episode.ID.String(), it.Episode.ContainerExtension.String()
	}
	file := url.PathEscape(id)
	if ext != "" {
		file += "." + url.PathEscape(ext)
	}
	return strings.TrimRight(creds.BaseURL, "/") + "/" + segment + "/" +
		url.PathEscape(creds.Username) + "/" + url.PathEscape(creds.Password) + "/" + file, nil
}
