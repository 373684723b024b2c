package pages

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"content-sync/core/retry"
)

const editPageMethod = "microblog.editPage"

// Client edits navigation pages.
type Client interface {
	EditPage(ctx context.Context, edit PageEdit) error
}

// PageEdit is the payload of one microblog.editPage call.
type PageEdit struct {
	PageID       int
	Title        string
	Description  string
	IsNavigation bool
}

// FaultError is an XML-RPC <fault> response.
type FaultError struct {
	Code    int
	Message string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("xmlrpc fault %d: %s", e.Code, e.Message)
}

// XMLRPCClient calls the publishing service's XML-RPC endpoint with Basic auth.
type XMLRPCClient struct {
	endpoint string
	username string
	token    string
	http     *http.Client
}

// NewClient creates an XML-RPC client from cfg.
func NewClient(cfg Config) (*XMLRPCClient, error) {
	if strings.TrimSpace(cfg.Token) == "" || strings.TrimSpace(cfg.Username) == "" {
		return nil, fmt.Errorf("xmlrpc username or token not set: %w", retry.ErrMissingCredentials)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return newXMLRPCClient(cfg.Endpoint, cfg.Username, cfg.Token, &http.Client{Timeout: timeout}), nil
}

func newXMLRPCClient(endpoint, username, token string, hc *http.Client) *XMLRPCClient {
	return &XMLRPCClient{endpoint: endpoint, username: username, token: token, http: hc}
}

// EditPage sets a page's title, description and navigation flag.
func (c *XMLRPCClient) EditPage(ctx context.Context, edit PageEdit) error {
	call := methodCall{
		MethodName: editPageMethod,
		Params: []param{
			{Value: value{Int: intPtr(edit.PageID)}},
			{Value: value{String: strPtr(c.username)}},
			{Value: value{String: strPtr(c.token)}},
			{Value: value{Struct: &structValue{Members: []member{
				{Name: "title", Value: value{String: strPtr(edit.Title)}},
				{Name: "description", Value: value{String: strPtr(edit.Description)}},
				{Name: "is_navigation", Value: value{Boolean: boolPtr(edit.IsNavigation)}},
			}}}},
		},
	}

	body, err := xml.Marshal(call)
	if err != nil {
		return err
	}
	body = append([]byte(xml.Header), body...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/xml")
	req.SetBasicAuth(c.username, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return retry.NewStatusError("xmlrpc.edit_page", resp, respBody)
	}

	return parseResponse(respBody)
}

func parseResponse(body []byte) error {
	var resp methodResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decoding xmlrpc response: %w: %w", retry.ErrMalformedResponse, err)
	}
	if resp.Fault == nil {
		return nil
	}

	fault := &FaultError{}
	for _, m := range resp.Fault.Value.Struct.Members {
		switch m.Name {
		case "faultCode":
			fault.Code = m.Value.asInt()
		case "faultString":
			fault.Message = m.Value.asText()
		}
	}
	return fault
}

// IsFault reports whether err carries an XML-RPC fault.
func IsFault(err error) bool {
	var fault *FaultError
	return errors.As(err, &fault)
}

type methodCall struct {
	XMLName    xml.Name `xml:"methodCall"`
	MethodName string   `xml:"methodName"`
	Params     []param  `xml:"params>param"`
}

type methodResponse struct {
	XMLName xml.Name `xml:"methodResponse"`
	Params  []param  `xml:"params>param"`
	Fault   *fault   `xml:"fault"`
}

type fault struct {
	Value struct {
		Struct structValue `xml:"struct"`
	} `xml:"value"`
}

type param struct {
	Value value `xml:"value"`
}

type value struct {
	String  *string      `xml:"string,omitempty"`
	Int     *int         `xml:"int,omitempty"`
	I4      *int         `xml:"i4,omitempty"`
	Boolean *xmlBool     `xml:"boolean,omitempty"`
	Struct  *structValue `xml:"struct,omitempty"`
	Chars   string       `xml:",chardata"`
}

func (v value) asInt() int {
	switch {
	case v.Int != nil:
		return *v.Int
	case v.I4 != nil:
		return *v.I4
	}
	n, _ := strconv.Atoi(strings.TrimSpace(v.Chars))
	return n
}

func (v value) asText() string {
	if v.String != nil {
		return *v.String
	}
	return strings.TrimSpace(v.Chars)
}

type structValue struct {
	Members []member `xml:"member"`
}

type member struct {
	Name  string `xml:"name"`
	Value value  `xml:"value"`
}

// xmlBool encodes as 1 or 0.
type xmlBool bool

func (b xmlBool) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	v := "0"
	if b {
		v = "1"
	}
	return e.EncodeElement(v, start)
}

func (b *xmlBool) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	*b = xmlBool(strings.TrimSpace(s) == "1")
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *xmlBool {
	v := xmlBool(b)
	return &v
}
