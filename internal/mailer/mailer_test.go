package mailer

import (
	"strings"
	"testing"
)

func TestDeadManTemplateRendering(t *testing.T) {
	body, err := renderMail(deadManTemplate, map[string]string{
		"ExecutorName": "Nora Quinn",
		"OwnerName":    "Sam Whitfield",
		"UploadURL":    "https://endura.example/verify",
	})
	if err != nil {
		t.Fatalf("rendering: %v", err)
	}

	for _, want := range []string{
		"Nora Quinn",
		"Sam Whitfield",
		`href="https://endura.example/verify"`,
		"proof-of-identity",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dead-man body missing %q", want)
		}
	}
}

func TestAccessGrantedTemplateRendering(t *testing.T) {
	body, err := renderMail(accessGrantedTemplate, map[string]string{
		"ExecutorName": "Nora Quinn",
		"OwnerName":    "Sam Whitfield",
	})
	if err != nil {
		t.Fatalf("rendering: %v", err)
	}

	for _, want := range []string{
		"Nora Quinn",
		"Sam Whitfield",
		"granted access",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("access-granted body missing %q", want)
		}
	}
}

func TestTemplatesEscapeHTML(t *testing.T) {
	body, err := renderMail(accessGrantedTemplate, map[string]string{
		"ExecutorName": `<script>alert("x")</script>`,
		"OwnerName":    "Owner",
	})
	if err != nil {
		t.Fatalf("rendering: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Error("template injected raw HTML from user-controlled name")
	}
}
