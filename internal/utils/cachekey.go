package utils

import (
	"strconv"
	"strings"
)

func BuildMembersListCacheKey(limit int, name, birthDate *string) string {
	n := ""
	if name != nil {
		n = strings.ToLower(strings.TrimSpace(*name))
	}
	b := ""
	if birthDate != nil {
		b = *birthDate
	}

	return "members:list:v1:limit=" + strconv.Itoa(limit) +
		":name=" + n +
		":birth=" + b
}
