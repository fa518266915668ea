// Package request defines the inbound /api/logs payload, grounded on
// original_source/schemas.py's InItem and models.py's LogRecord column set.
// Field-alias normalization (pc_name/pcName/hostname) accounts for agent
// variants observed across the original client implementations.
package request

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Attachment is the inbound base64-encoded attachment payload.
type Attachment struct {
	Format string `json:"format"`
	Data   string `json:"data"`
}

// In is one request to the Sentinel Inspector, as received from an agent.
type In struct {
	Time       string      `json:"time"`
	PublicIP   string      `json:"public_ip"`
	PrivateIP  string      `json:"private_ip"`
	Host       string      `json:"host"`
	Hostname   string      `json:"hostname"`
	PCName     string      `json:"pc_name"`
	PCNameAlt  string      `json:"pcName"`
	Prompt     string      `json:"prompt"`
	Attachment *Attachment `json:"attachment"`
	Interface  string      `json:"interface"`
}

// EffectiveHostname resolves the hostname field across the three aliases a
// request may carry it under, preferring the most specific name present.
func (in In) EffectiveHostname() string {
	for _, v := range []string{in.Hostname, in.PCName, in.PCNameAlt} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// EffectiveInterface defaults to "llm" when the caller doesn't specify one,
// matching the original schema's default.
func (in In) EffectiveInterface() string {
	if strings.TrimSpace(in.Interface) == "" {
		return "llm"
	}
	return in.Interface
}

// Validate reports the first structural problem with the request, suitable
// for a 422 response. It rejects an empty prompt and, when an attachment is
// present, an empty format or data that is not valid base64; every other
// field is best-effort metadata.
func (in In) Validate() error {
	if strings.TrimSpace(in.Prompt) == "" {
		return fmt.Errorf("prompt must not be empty")
	}
	if in.Attachment != nil {
		if in.Attachment.Format == "" {
			return fmt.Errorf("attachment.format must not be empty when attachment.data is present")
		}
		if _, err := base64.StdEncoding.DecodeString(in.Attachment.Data); err != nil {
			return fmt.Errorf("attachment.data is not valid base64: %w", err)
		}
	}
	return nil
}

// Out is the response returned from /api/logs, mirroring the original
// ServerOut schema's field set.
type Out struct {
	RequestID      string      `json:"request_id"`
	Host           string      `json:"host"`
	ModifiedPrompt string      `json:"modified_prompt"`
	HasSensitive   bool        `json:"has_sensitive"`
	Entities       []EntityOut `json:"entities"`
	ProcessingMs   int64       `json:"processing_ms"`
	FileBlocked    bool        `json:"file_blocked"`
	Allow          bool        `json:"allow"`
	Action         string      `json:"action"`
	Alert          string      `json:"alert,omitempty"`
	Attachment     *Attachment `json:"attachment,omitempty"`
}

// EntityOut is the wire representation of a detected entity: provenance is
// deliberately excluded here (it's dropped before the response is built).
type EntityOut struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Begin int    `json:"begin"`
	End   int    `json:"end"`
}
