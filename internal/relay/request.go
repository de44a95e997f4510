package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidJSON is returned by ParseRequest when the body is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON body")

// Request is the inbound email description.
//
// AttachmentData is kept raw so a non-string value can be ignored instead
// of failing the whole request. XLSXBase64 and Filename are accepted as
// older names for AttachmentData and AttachmentName.
type Request struct {
	To             AddressList     `json:"to"`
	From           string          `json:"from"`
	ReplyTo        string          `json:"replyTo"`
	Subject        string          `json:"subject"`
	HTML           string          `json:"html"`
	AttachmentData json.RawMessage `json:"attachmentData"`
	AttachmentName string          `json:"attachmentName"`
	XLSXBase64     json.RawMessage `json:"xlsxBase64"`
	Filename       string          `json:"filename"`
	Cc             AddressList     `json:"cc"`
	Bcc            AddressList     `json:"bcc"`
}

// AddressList is one address or a list of addresses. On the wire it is
// either a JSON string or an array of strings; blank entries are dropped.
type AddressList []string

// UnmarshalJSON implements json.Unmarshaler.
func (a *AddressList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = compact([]string{single})
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("address list must be a string or an array of strings: %w", err)
	}
	*a = compact(many)
	return nil
}

func compact(addrs []string) AddressList {
	var out AddressList
	for _, addr := range addrs {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// ParseRequest decodes a request body. An empty body and any JSON value
// that is not an object decode to the zero Request, which then fails
// validation like a request with every field missing.
func ParseRequest(body []byte) (Request, error) {
	var req Request

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return req, nil
	}
	if !json.Valid(body) {
		return req, ErrInvalidJSON
	}
	if body[0] != '{' {
		return req, nil
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return req, nil
}

// attachment returns the base64 payload and file name, preferring the
// current field names over the older ones. ok is false unless the payload
// is a non-empty JSON string.
func (r Request) attachment() (data, name string, ok bool) {
	raw := r.AttachmentData
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = r.XLSXBase64
	}

	if err := json.Unmarshal(raw, &data); err != nil || data == "" {
		return "", "", false
	}

	name = r.AttachmentName
	if name == "" {
		name = r.Filename
	}
	if name == "" {
		name = DefaultAttachmentName
	}
	return data, name, true
}
