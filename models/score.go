package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Score strings travel on the wire as "X-Y", e.g. "5-3". Both the bracket
// and the stats-reporting paths must round-trip this format exactly.
var scorePattern = regexp.MustCompile(`^\d+-\d+$`)

var ErrInvalidScoreFormat = errors.New(`invalid score format, expected "X-Y" where X and Y are numbers`)

func ValidScore(score string) bool {
	return scorePattern.MatchString(score)
}

func ParseScore(score string) (p1 int, p2 int, err error) {
	if !scorePattern.MatchString(score) {
		return 0, 0, ErrInvalidScoreFormat
	}
	parts := strings.SplitN(score, "-", 2)
	p1, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, ErrInvalidScoreFormat
	}
	p2, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, ErrInvalidScoreFormat
	}
	return p1, p2, nil
}

func FormatScore(p1, p2 int) string {
	return fmt.Sprintf("%d-%d", p1, p2)
}
