package util

import (
    "strconv"
    "strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
    if s == "" {
        return def
    }
    v, err := strconv.Atoi(s)
    if err != nil {
        return def
    }
    return v
}

// SplitList splits a comma, semicolon or whitespace separated list, dropping empties.
func SplitList(s string) []string {
    fields := strings.FieldsFunc(s, func(r rune) bool {
        return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
    })
    out := fields[:0]
    for _, f := range fields {
        if f = strings.TrimSpace(f); f != "" {
            out = append(out, f)
        }
    }
    return out
}
