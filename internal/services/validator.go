package services

import (
	"errors"
	"net/url"
	"strings"
)

// maxBaseURLLength leaves room for the report path in a share link.
const maxBaseURLLength = 2000

// NormalizeBaseURL validates the public base URL used for share links and
// returns it with a lower-cased scheme and host, no fragment or query, and
// no trailing slash.
func NormalizeBaseURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", errors.New("invalid base URL format")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("base URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return "", errors.New("base URL must have a host")
	}
	if len(rawURL) > maxBaseURLLength {
		return "", errors.New("base URL too long")
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawQuery = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""

	return parsed.String(), nil
}
