package relay

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestAddressList_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    AddressList
		wantErr bool
	}{
		{name: "single string", input: `"a@example.com"`, want: AddressList{"a@example.com"}},
		{name: "array", input: `["a@example.com","b@example.com"]`, want: AddressList{"a@example.com", "b@example.com"}},
		{name: "blank entries dropped", input: `["", " a@example.com ", "  "]`, want: AddressList{"a@example.com"}},
		{name: "empty string", input: `""`, want: nil},
		{name: "null", input: `null`, want: nil},
		{name: "number", input: `42`, wantErr: true},
		{name: "mixed array", input: `["a@example.com", 1]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got AddressList
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseRequest_FullBody(t *testing.T) {
	t.Parallel()

	body := []byte(`{
		"to": ["alice@example.com", "bob@example.com"],
		"from": "reports@example.com",
		"replyTo": "owner@example.com",
		"subject": "Codelist",
		"html": "<p>Hi</p>",
		"attachmentData": "UEsDBBQ=",
		"attachmentName": "march.xlsx",
		"cc": "carol@example.com",
		"bcc": ["dave@example.com"]
	}`)

	req, err := ParseRequest(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(req.To, AddressList{"alice@example.com", "bob@example.com"}) {
		t.Errorf("To: got %v", req.To)
	}
	if req.From != "reports@example.com" || req.ReplyTo != "owner@example.com" {
		t.Errorf("From/ReplyTo: got %q/%q", req.From, req.ReplyTo)
	}
	if req.Subject != "Codelist" || req.HTML != "<p>Hi</p>" {
		t.Errorf("Subject/HTML: got %q/%q", req.Subject, req.HTML)
	}
	if !reflect.DeepEqual(req.Cc, AddressList{"carol@example.com"}) {
		t.Errorf("Cc: got %v", req.Cc)
	}
	if !reflect.DeepEqual(req.Bcc, AddressList{"dave@example.com"}) {
		t.Errorf("Bcc: got %v", req.Bcc)
	}

	data, name, ok := req.attachment()
	if !ok || data != "UEsDBBQ=" || name != "march.xlsx" {
		t.Errorf("attachment(): got %q, %q, %v", data, name, ok)
	}
}

func TestParseRequest_EmptyAndNonObjectBodies(t *testing.T) {
	t.Parallel()

	for _, body := range []string{``, `   `, `null`, `[]`, `"text"`, `42`} {
		req, err := ParseRequest([]byte(body))
		if err != nil {
			t.Errorf("body %q: unexpected error: %v", body, err)
			continue
		}
		if !reflect.DeepEqual(req, Request{}) {
			t.Errorf("body %q: got %+v, want zero Request", body, req)
		}
	}
}

func TestParseRequest_InvalidJSON(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{`, `{"to":}`, `not json`, `{"to": 5, "subject": "s", "html": "h"}`} {
		_, err := ParseRequest([]byte(body))
		if !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("body %q: got %v, want ErrInvalidJSON", body, err)
		}
	}
}

func TestRequestAttachment_PrefersCurrentFieldNames(t *testing.T) {
	t.Parallel()

	req := Request{
		AttachmentData: json.RawMessage(`"bmV3"`),
		XLSXBase64:     json.RawMessage(`"b2xk"`),
		Filename:       "old.xlsx",
	}

	data, name, ok := req.attachment()
	if !ok {
		t.Fatal("expected an attachment")
	}
	if data != "bmV3" {
		t.Errorf("data: got %q, want %q", data, "bmV3")
	}
	if name != "old.xlsx" {
		t.Errorf("name: got %q, want %q", name, "old.xlsx")
	}
}
