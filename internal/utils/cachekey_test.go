package utils

import "testing"

func strptr(s string) *string { return &s }

func TestBuildMembersListCacheKey(t *testing.T) {
	base := BuildMembersListCacheKey(100, nil, nil)

	if base != BuildMembersListCacheKey(100, nil, nil) {
		t.Fatal("key must be deterministic")
	}
	if base == BuildMembersListCacheKey(50, nil, nil) {
		t.Fatal("limit must be part of the key")
	}
	if base == BuildMembersListCacheKey(100, strptr("jane"), nil) {
		t.Fatal("name filter must be part of the key")
	}
	if base == BuildMembersListCacheKey(100, nil, strptr("1990-03-14")) {
		t.Fatal("birth date filter must be part of the key")
	}

	// name is normalized so equivalent filters share an entry
	if BuildMembersListCacheKey(100, strptr("  Jane "), nil) != BuildMembersListCacheKey(100, strptr("jane"), nil) {
		t.Fatal("name must be trimmed and lowercased")
	}
}

func TestIsUUID(t *testing.T) {
	if !IsUUID("0b8f6a52-68cb-4c2e-9cc3-8c64f8021a9a") {
		t.Fatal("valid uuid rejected")
	}
	if IsUUID("42") {
		t.Fatal("non-uuid accepted")
	}
	if IsUUID("") {
		t.Fatal("empty string accepted")
	}
}
