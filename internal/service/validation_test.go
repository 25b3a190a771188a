package service

import (
	"errors"
	"strings"
	"testing"
)

func TestValidationMessagesNameTheField(t *testing.T) {
	lat := 120.0
	long := strings.Repeat("x", 256)
	cases := []struct {
		name string
		in   interface{}
		want string
	}{
		{"required", AssignInput{TechnicianID: 1}, "The ticket id field is required."},
		{"range", AssignInput{TicketID: 1, TechnicianID: 1, Latitude: &lat}, "The latitude may not be greater than 90."},
		{"length", TicketInput{Title: long, Description: "d", Priority: "low", Category: "c"}, "The title may not be greater than 255 characters."},
		{"oneof", TicketInput{Title: "t", Description: "d", Priority: "whenever", Category: "c"}, "The selected priority is invalid."},
		{"email", MessageInput{Name: "n", Email: "nope", Subject: "s", Body: "b"}, "The email must be a valid email address."},
		{"min", UserInput{Name: "n", Email: "n@example.test", Role: "client", Password: "short"}, "The password must be at least 8 characters."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateInput(tc.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
			var svcErr *Error
			if !errors.As(err, &svcErr) || svcErr.Code != CodeValidation {
				t.Fatalf("error = %+v", svcErr)
			}
			if svcErr.Message != tc.want {
				t.Errorf("message = %q, want %q", svcErr.Message, tc.want)
			}
		})
	}
}

func TestValidInputPasses(t *testing.T) {
	in := MessageInput{Name: "n", Email: "n@example.test", Subject: "s", Body: "b"}
	if err := validateInput(in); err != nil {
		t.Errorf("err = %v", err)
	}
}

func TestFieldLabel(t *testing.T) {
	cases := map[string]string{
		"TicketID":                "ticket id",
		"Title":                   "title",
		"NewPasswordConfirmation": "new password confirmation",
		"ID":                      "id",
	}
	for in, want := range cases {
		if got := fieldLabel(in); got != want {
			t.Errorf("fieldLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
