package config

import (
	"testing"
)

func TestFlatten_Simple(t *testing.T) {
	m := map[string]any{
		"a": "hello",
		"b": 42.0,
	}
	got := Flatten(m)
	if got["a"] != "hello" {
		t.Errorf("expected a=hello, got %v", got["a"])
	}
	if got["b"] != 42.0 {
		t.Errorf("expected b=42, got %v", got["b"])
	}
	if len(got) != 2 {
		t.Errorf("expected 2 keys, got %d", len(got))
	}
}

func TestFlatten_Nested(t *testing.T) {
	m := map[string]any{
		"speech": map[string]any{
			"command": "espeak -s 150",
		},
		"log_level": "info",
	}
	got := Flatten(m)
	if got["speech.command"] != "espeak -s 150" {
		t.Errorf("expected speech.command, got %v", got["speech.command"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
	if len(got) != 2 {
		t.Errorf("expected 2 keys, got %d", len(got))
	}
}

func TestFlatten_DeeplyNested(t *testing.T) {
	m := map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": "deep",
			},
		},
	}
	got := Flatten(m)
	if got["a.b.c"] != "deep" {
		t.Errorf("expected a.b.c=deep, got %v", got["a.b.c"])
	}
	if len(got) != 1 {
		t.Errorf("expected 1 key, got %d", len(got))
	}
}

func TestUnflatten_Nested(t *testing.T) {
	flat := map[string]any{
		"telegram.token":   "123456:ABCdef",
		"telegram.chat_id": 42.0,
		"log_level":        "info",
	}
	got := Unflatten(flat)
	tg, ok := got["telegram"].(map[string]any)
	if !ok {
		t.Fatalf("expected telegram to be map, got %T", got["telegram"])
	}
	if tg["token"] != "123456:ABCdef" {
		t.Errorf("expected telegram.token, got %v", tg["token"])
	}
	if tg["chat_id"] != 42.0 {
		t.Errorf("expected telegram.chat_id=42, got %v", tg["chat_id"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
}

func TestRoundTrip_FlattenUnflatten(t *testing.T) {
	original := map[string]any{
		"data_dir":  "/home/test/.lector",
		"log_level": "debug",
		"speech": map[string]any{
			"command": "say",
		},
		"http": map[string]any{
			"enabled": true,
			"listen":  "127.0.0.1:8714",
		},
		"telegram": map[string]any{
			"token": "bot-token-abc",
		},
	}

	restored := Unflatten(Flatten(original))

	if restored["data_dir"] != original["data_dir"] {
		t.Errorf("data_dir mismatch: %v != %v", restored["data_dir"], original["data_dir"])
	}
	speech := restored["speech"].(map[string]any)
	if speech["command"] != "say" {
		t.Errorf("speech.command mismatch: %v", speech["command"])
	}
	httpCfg := restored["http"].(map[string]any)
	if httpCfg["enabled"] != true {
		t.Errorf("http.enabled mismatch: %v", httpCfg["enabled"])
	}
	if httpCfg["listen"] != "127.0.0.1:8714" {
		t.Errorf("http.listen mismatch: %v", httpCfg["listen"])
	}
	tg := restored["telegram"].(map[string]any)
	if tg["token"] != "bot-token-abc" {
		t.Errorf("telegram.token mismatch: %v", tg["token"])
	}
}

func TestMaskSecrets(t *testing.T) {
	flat := map[string]any{
		"telegram.token": "123456:ABCdefGHIjkl",
		"speech.command": "espeak",
		"log_level":      "info",
	}
	got := MaskSecrets(flat)

	if got["speech.command"] != "espeak" {
		t.Errorf("expected speech.command unchanged, got %v", got["speech.command"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level unchanged, got %v", got["log_level"])
	}
	if got["telegram.token"] != "***Ijkl" {
		t.Errorf("expected telegram.token=***Ijkl, got %v", got["telegram.token"])
	}
}

func TestMaskSecrets_EmptySecret(t *testing.T) {
	flat := map[string]any{
		"telegram.token": "",
	}
	got := MaskSecrets(flat)
	if got["telegram.token"] != "" {
		t.Errorf("expected empty string to remain empty, got %v", got["telegram.token"])
	}
}

func TestMaskSecrets_ShortSecret(t *testing.T) {
	flat := map[string]any{
		"telegram.token": "ab",
	}
	got := MaskSecrets(flat)
	if got["telegram.token"] != "***ab" {
		t.Errorf("expected ***ab for short secret, got %v", got["telegram.token"])
	}
}

func TestIsSecretKey(t *testing.T) {
	if !IsSecretKey("telegram.token") {
		t.Error("expected telegram.token to be secret")
	}
	if IsSecretKey("speech.command") {
		t.Error("expected speech.command not to be secret")
	}
}
