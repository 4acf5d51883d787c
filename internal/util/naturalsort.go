package util

import (
	"regexp"
	"strconv"
	"strings"
)

var tokenizer = regexp.MustCompile(`(\d+|\D+)`)

type titleToken struct {
	str   string
	num   int
	isNum bool
}

func tokenize(s string) []titleToken {
	parts := tokenizer.FindAllString(strings.TrimSpace(s), -1)
	tokens := make([]titleToken, len(parts))
	for i, p := range parts {
		num, err := strconv.Atoi(p)
		if err == nil {
			tokens[i] = titleToken{num: num, isNum: true}
		} else {
			tokens[i] = titleToken{str: strings.ToLower(p)}
		}
	}
	return tokens
}

// CompareTitles orders two titles naturally and case-insensitively, so
// "Rocky 2" sorts before "Rocky 10". It returns -1, 0 or 1.
func CompareTitles(a, b string) int {
	t1 := tokenize(a)
	t2 := tokenize(b)
	minLen := min(len(t1), len(t2))

	for i := 0; i < minLen; i++ {
		// A number sorts before text at the same position.
		if t1[i].isNum != t2[i].isNum {
			if t1[i].isNum {
				return -1
			}
			return 1
		}
		if t1[i].isNum {
			if t1[i].num != t2[i].num {
				if t1[i].num < t2[i].num {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(t1[i].str, t2[i].str); c != 0 {
			return c
		}
	}

	switch {
	case len(t1) < len(t2):
		return -1
	case len(t1) > len(t2):
		return 1
	}
	return 0
}

// NaturalSortLess reports whether title a sorts before title b.
func NaturalSortLess(a, b string) bool {
	return CompareTitles(a, b) < 0
}
