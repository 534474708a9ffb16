package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsCredentials(t *testing.T) {
	kv := sanitizeKVs([]interface{}{
		"refresh_token", "abc",
		"password", "hunter2",
		"course_id", "c-1",
		"user_id", "u-1",
	})
	if len(kv) != 8 {
		t.Fatalf("unexpected length: %d", len(kv))
	}
	if kv[1] != redacted || kv[3] != redacted {
		t.Fatalf("credentials not redacted: %v", kv)
	}
	if kv[5] != "c-1" {
		t.Fatalf("course_id should pass through: %v", kv[5])
	}
	if s, _ := kv[7].(string); !strings.HasPrefix(s, "hash:") {
		t.Fatalf("user_id should be hashed: %v", kv[7])
	}
}

func TestSanitizeKVsNestedMaps(t *testing.T) {
	kv := sanitizeKVs([]interface{}{
		"user", map[string]interface{}{"name": "ann", "password": "x"},
	})
	m, ok := kv[1].(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", kv[1])
	}
	if m["password"] != redacted || m["name"] != "ann" {
		t.Fatalf("unexpected nested sanitize: %v", m)
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	kv := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(kv) != 3 || kv[2] != "dangling" {
		t.Fatalf("dangling key lost: %v", kv)
	}
}
