package utils

import "github.com/microcosm-cc/bluemonday"

var ugcPolicy = bluemonday.UGCPolicy()

// SanitizeUGC strips markup that is unsafe in user generated content.
func SanitizeUGC(input string) string {
	return ugcPolicy.Sanitize(input)
}
