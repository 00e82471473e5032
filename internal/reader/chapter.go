package reader

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ErrDocumentUnavailable covers every way a chapter document can fail to
// load: fetch, open and parse errors are not distinguished.
var ErrDocumentUnavailable = errors.New("document unavailable")

// ChapterParam is the query parameter carrying the chapter index
const ChapterParam = "chapter"

// ParseChapterParam parses a raw chapter value, defaulting to 1
func ParseChapterParam(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return n
}

// ParseNavigation extracts the chapter index from a reader address such as
// "reader.html?chapter=3" or a bare query "chapter=3".
func ParseNavigation(address string) int {
	query := address
	if i := strings.IndexByte(address, '?'); i >= 0 {
		query = address[i+1:]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return 1
	}
	if !values.Has(ChapterParam) {
		return 1
	}
	return ParseChapterParam(values.Get(ChapterParam))
}

var chapterVerb = regexp.MustCompile(`%0?[0-9]*d`)

// DocumentPath substitutes the chapter index into a source pattern. The
// pattern uses a "{chapter}" placeholder or a single %d verb.
func DocumentPath(pattern string, chapter int) string {
	if strings.Contains(pattern, "{chapter}") {
		return strings.ReplaceAll(pattern, "{chapter}", strconv.Itoa(chapter))
	}
	// Only the verb is formatted; any other "%" is part of the path
	if loc := chapterVerb.FindStringIndex(pattern); loc != nil {
		verb := pattern[loc[0]:loc[1]]
		return pattern[:loc[0]] + fmt.Sprintf(verb, chapter) + pattern[loc[1]:]
	}
	return pattern
}

// clampChapter keeps a chapter index inside [1, total]
func clampChapter(chapter, total int) int {
	if chapter < 1 {
		return 1
	}
	if chapter > total {
		return total
	}
	return chapter
}
