package workspace

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
	"strconv"
	"time"

	"watopic/internal/errors"
)

// HTTPClient implements Client against the workspace bot API. Every request
// is scoped to the configured channel.
type HTTPClient struct {
	baseURL   string
	botToken  string
	channelID int64
	client    *http.Client
}

// ClientOptions configures a new workspace client.
type ClientOptions struct {
	BaseURL   string
	BotToken  string
	ChannelID int64
	Timeout   time.Duration
}

func NewClient(opts ClientOptions) *HTTPClient {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:   opts.BaseURL,
		botToken:  opts.BotToken,
		channelID: opts.ChannelID,
		client:    &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	OK        bool   `json:"ok"`
	MessageID int64  `json:"messageId"`
	TopicID   int64  `json:"topicId"`
	Error     string `json:"error,omitempty"`
}

func (c *HTTPClient) CreateTopic(ctx context.Context, name string) (int64, error) {
	resp, err := c.postJSON(ctx, "/createTopic", map[string]interface{}{
		"channelId": c.channelID,
		"name":      name,
	})
	if err != nil {
		return 0, err
	}
	return resp.TopicID, nil
}

func (c *HTTPClient) EditTopicName(ctx context.Context, topicID int64, name string) error {
	_, err := c.postJSON(ctx, "/editTopic", map[string]interface{}{
		"channelId": c.channelID,
		"topicId":   topicID,
		"name":      name,
	})
	return err
}

func (c *HTTPClient) SendText(ctx context.Context, topicID int64, text string, opts *SendOpts) (int64, error) {
	payload := map[string]interface{}{
		"channelId": c.channelID,
		"topicId":   topicID,
		"text":      text,
	}
	if opts != nil && opts.ReplyTo != 0 {
		payload["replyTo"] = opts.ReplyTo
	}
	resp, err := c.postJSON(ctx, "/sendText", payload)
	if err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

func (c *HTTPClient) SendPhoto(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error) {
	return c.sendFile(ctx, "/sendPhoto", topicID, filePath, opts)
}

func (c *HTTPClient) SendVideo(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error) {
	return c.sendFile(ctx, "/sendVideo", topicID, filePath, opts)
}

func (c *HTTPClient) SendVideoNote(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error) {
	return c.sendFile(ctx, "/sendVideoNote", topicID, filePath, opts)
}

func (c *HTTPClient) SendAudio(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error) {
	return c.sendFile(ctx, "/sendAudio", topicID, filePath, opts)
}

func (c *HTTPClient) SendVoice(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error) {
	return c.sendFile(ctx, "/sendVoice", topicID, filePath, opts)
}

func (c *HTTPClient) SendDocument(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error) {
	return c.sendFile(ctx, "/sendDocument", topicID, filePath, opts)
}

func (c *HTTPClient) SendSticker(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error) {
	return c.sendFile(ctx, "/sendSticker", topicID, filePath, opts)
}

func (c *HTTPClient) SendLocation(ctx context.Context, topicID int64, latitude, longitude float64, name string) (int64, error) {
	resp, err := c.postJSON(ctx, "/sendLocation", map[string]interface{}{
		"channelId": c.channelID,
		"topicId":   topicID,
		"latitude":  latitude,
		"longitude": longitude,
		"name":      name,
	})
	if err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

func (c *HTTPClient) SendContact(ctx context.Context, topicID int64, fullName, phoneNumber string) (int64, error) {
	resp, err := c.postJSON(ctx, "/sendContact", map[string]interface{}{
		"channelId":   c.channelID,
		"topicId":     topicID,
		"fullName":    fullName,
		"phoneNumber": phoneNumber,
	})
	if err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

func (c *HTTPClient) SetReaction(ctx context.Context, messageID int64, emoji string) error {
	_, err := c.postJSON(ctx, "/setReaction", map[string]interface{}{
		"channelId": c.channelID,
		"messageId": messageID,
		"emoji":     emoji,
	})
	return err
}

func (c *HTTPClient) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/"+fileID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	c.auth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.WrapRetryable(err, errors.ErrCodeMediaDownload, "file download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAPIError("workspace", "/files/"+fileID, resp.StatusCode,
			fmt.Errorf("download failed with status %d", resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}

func (c *HTTPClient) sendFile(ctx context.Context, endpoint string, topicID int64, filePath string, opts *SendOpts) (int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	name := filepath.Base(filePath)
	if opts != nil && opts.FileName != "" {
		name = opts.FileName
	}

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return 0, fmt.Errorf("failed to copy file content: %w", err)
	}

	writer.WriteField("channelId", strconv.FormatInt(c.channelID, 10))
	writer.WriteField("topicId", strconv.FormatInt(topicID, 10))
	if opts != nil {
		if opts.Caption != "" {
			writer.WriteField("caption", opts.Caption)
		}
		if opts.ReplyTo != 0 {
			writer.WriteField("replyTo", strconv.FormatInt(opts.ReplyTo, 10))
		}
		if opts.MimeType != "" {
			writer.WriteField("mimetype", opts.MimeType)
		}
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.auth(req)

	resp, err := c.do(req, endpoint)
	if err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, endpoint string, payload interface{}) (*apiResponse, error) {
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

func (c *HTTPClient) do(req *http.Request, endpoint string) (*apiResponse, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.WrapRetryable(err, errors.ErrCodeWorkspaceAPI, "request failed")
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !result.OK {
		return &result, errors.NewAPIError("workspace", endpoint, resp.StatusCode,
			fmt.Errorf("request failed with status %d: %s", resp.StatusCode, result.Error))
	}

	return &result, nil
}

func (c *HTTPClient) auth(req *http.Request) {
	if c.botToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.botToken)
	}
}
