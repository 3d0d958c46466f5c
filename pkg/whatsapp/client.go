package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"watopic/internal/errors"
	"watopic/pkg/whatsapp/types"
)

// WhatsAppClient talks to the source network gateway over HTTP.
type WhatsAppClient struct {
	baseURL string
	wsURL   string
	apiKey  string
	client  *http.Client
}

// ClientOptions configures a new client.
type ClientOptions struct {
	BaseURL      string
	WebsocketURL string
	APIKey       string
	Timeout      time.Duration
}

func NewClient(opts ClientOptions) *WhatsAppClient {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &WhatsAppClient{
		baseURL: opts.BaseURL,
		wsURL:   opts.WebsocketURL,
		apiKey:  opts.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *WhatsAppClient) SendText(ctx context.Context, chatJID, text string) (*types.SendMessageResponse, error) {
	return c.sendRequest(ctx, "/api/sendText", map[string]interface{}{
		"chatId": chatJID,
		"text":   text,
	})
}

func (c *WhatsAppClient) SendReply(ctx context.Context, chatJID, text, quotedMessageID string) (*types.SendMessageResponse, error) {
	return c.sendRequest(ctx, "/api/sendText", map[string]interface{}{
		"chatId":          chatJID,
		"text":            text,
		"quotedMessageId": quotedMessageID,
	})
}

func (c *WhatsAppClient) SendContactCard(ctx context.Context, chatJID, vcard string) (*types.SendMessageResponse, error) {
	return c.sendRequest(ctx, "/api/sendContactVcard", map[string]interface{}{
		"chatId": chatJID,
		"vcard":  vcard,
	})
}

func (c *WhatsAppClient) RevokeMessage(ctx context.Context, chatJID, messageID string) error {
	_, err := c.sendRequest(ctx, "/api/revokeMessage", map[string]interface{}{
		"chatId":    chatJID,
		"messageId": messageID,
	})
	return err
}

func (c *WhatsAppClient) SendMedia(ctx context.Context, chatJID, filePath, caption, mimeType string) (*types.SendMessageResponse, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open media file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}

	writer.WriteField("chatId", chatJID)
	if caption != "" {
		writer.WriteField("caption", caption)
	}
	if mimeType != "" {
		writer.WriteField("mimetype", mimeType)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sendMedia", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.auth(req)

	return c.do(req, "/api/sendMedia")
}

func (c *WhatsAppClient) DownloadMedia(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	c.auth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.WrapRetryable(err, errors.ErrCodeMediaDownload, "media download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAPIError("whatsapp", ref, resp.StatusCode,
			fmt.Errorf("download failed with status %d", resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}

func (c *WhatsAppClient) GetGroupMetadata(ctx context.Context, groupJID string) (*types.GroupMetadata, error) {
	var meta types.GroupMetadata
	if err := c.getJSON(ctx, "/api/groups/"+groupJID, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *WhatsAppClient) GetProfileImageURL(ctx context.Context, jid string) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, "/api/contacts/"+jid+"/profile-picture", &result); err != nil {
		return "", err
	}
	return result.URL, nil
}

func (c *WhatsAppClient) GetContact(ctx context.Context, jid string) (*types.Contact, error) {
	var contact types.Contact
	if err := c.getJSON(ctx, "/api/contacts/"+jid, &contact); err != nil {
		return nil, err
	}
	if contact.JID == "" {
		return nil, nil
	}
	return &contact, nil
}

func (c *WhatsAppClient) GetAllContacts(ctx context.Context, limit, offset int) ([]types.Contact, error) {
	var contacts []types.Contact
	path := fmt.Sprintf("/api/contacts?limit=%d&offset=%d", limit, offset)
	if err := c.getJSON(ctx, path, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (c *WhatsAppClient) GetJoinedGroups(ctx context.Context) ([]types.GroupMetadata, error) {
	var groups []types.GroupMetadata
	if err := c.getJSON(ctx, "/api/groups", &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *WhatsAppClient) SendPresence(ctx context.Context, chatJID string, state types.PresenceState) error {
	_, err := c.sendRequest(ctx, "/api/sendPresence", map[string]interface{}{
		"chatId":   chatJID,
		"presence": string(state),
	})
	return err
}

func (c *WhatsAppClient) MarkRead(ctx context.Context, chatJID string, messageIDs []string) error {
	_, err := c.sendRequest(ctx, "/api/sendSeen", map[string]interface{}{
		"chatId":     chatJID,
		"messageIds": messageIDs,
	})
	return err
}

func (c *WhatsAppClient) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
}

func (c *WhatsAppClient) sendRequest(ctx context.Context, endpoint string, payload interface{}) (*types.SendMessageResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	return c.do(req, endpoint)
}

func (c *WhatsAppClient) do(req *http.Request, endpoint string) (*types.SendMessageResponse, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.WrapRetryable(err, errors.ErrCodeWhatsAppAPI, "request failed")
	}
	defer resp.Body.Close()

	var result types.SendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &result, errors.NewAPIError("whatsapp", endpoint, resp.StatusCode,
			fmt.Errorf("request failed with status %d: %s", resp.StatusCode, result.Error))
	}

	return &result, nil
}

func (c *WhatsAppClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.auth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.WrapRetryable(err, errors.ErrCodeWhatsAppAPI, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return errors.NewAPIError("whatsapp", endpoint, resp.StatusCode,
			fmt.Errorf("request failed with status %d", resp.StatusCode))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
