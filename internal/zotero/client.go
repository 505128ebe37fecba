package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.zotero.org"
	apiVersion     = "3"
	pageSize       = 100
)

// Item types kept when filtering a collection down to citable documents.
var academicItemTypes = map[string]bool{
	"journalArticle":   true,
	"book":             true,
	"bookSection":      true,
	"document":         true,
	"report":           true,
	"conferencePaper":  true,
	"thesis":           true,
	"manuscript":       true,
	"preprint":         true,
	"blogPost":         true,
	"webpage":          true,
	"magazineArticle":  true,
	"newspaperArticle": true,
	"letter":           true,
	"interview":        true,
	"presentation":     true,
	"audioRecording":   true,
	"videoRecording":   true,
	"podcast":          true,
	"case":             true,
	"statute":          true,
	"bill":             true,
	"hearing":          true,
	"patent":           true,
	"map":              true,
}

type Collection struct {
	Key  string         `json:"key"`
	Data CollectionData `json:"data"`
}

type CollectionData struct {
	Name             string `json:"name"`
	ParentCollection any    `json:"parentCollection,omitempty"`
}

type Item struct {
	Key            string          `json:"key"`
	Data           ItemData        `json:"data"`
	Meta           ItemMeta        `json:"meta"`
	HasPDF         bool            `json:"hasPDF"`
	PDFAttachments []PDFAttachment `json:"pdfAttachments"`
}

type ItemData struct {
	Key         string `json:"key"`
	ItemType    string `json:"itemType"`
	Title       string `json:"title,omitempty"`
	ParentItem  string `json:"parentItem,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

type ItemMeta struct {
	NumChildren int `json:"numChildren,omitempty"`
}

type PDFAttachment struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// Client talks to the Zotero Web API v3 for one user's library and caches
// downloaded PDFs in a temp directory.
type Client struct {
	baseURL string
	apiKey  string
	userID  string
	httpc   *http.Client
	tempDir string
	logger  *zap.Logger
}

func NewClient(baseURL, apiKey, userID, tempDir string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		userID:  userID,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		tempDir: tempDir,
		logger:  logger,
	}
}

// Collections lists the user's collections.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var collections []Collection
	if _, err := c.get(ctx, fmt.Sprintf("/users/%s/collections", c.userID), nil, &collections); err != nil {
		return nil, fmt.Errorf("fetch collections: %w", err)
	}
	return collections, nil
}

// CollectionItems fetches every item in a collection, filters it down to
// academic items (deduplicating attachments whose parent is present) and
// probes each for PDF attachments. Probe failures are logged and leave the
// item marked as having no PDF.
func (c *Client) CollectionItems(ctx context.Context, collectionID string) ([]Item, error) {
	all, err := c.fetchAllItems(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	// Items whose parent is present in the collection are duplicates of it.
	parents := make(map[string]bool)
	for _, item := range all {
		if item.Data.ParentItem != "" {
			parents[item.Data.ParentItem] = true
		}
	}

	var academic []Item
	for _, item := range all {
		if item.Data.ItemType == "attachment" {
			if item.Data.ParentItem == "" || parents[item.Data.ParentItem] {
				continue
			}
			academic = append(academic, item)
			continue
		}
		if academicItemTypes[item.Data.ItemType] || item.Meta.NumChildren > 0 {
			academic = append(academic, item)
		}
	}

	c.logger.Info("filtered collection items",
		zap.String("collection_id", collectionID),
		zap.Int("total", len(all)),
		zap.Int("academic", len(academic)))

	for i := range academic {
		item := &academic[i]
		if item.Data.ItemType == "attachment" {
			continue
		}
		attachments, err := c.pdfChildren(ctx, item.Key)
		if err != nil {
			c.logger.Error("error checking attachments for item",
				zap.Error(err),
				zap.String("item_key", item.Key))
			continue
		}
		item.PDFAttachments = attachments
		item.HasPDF = len(attachments) > 0
	}

	return academic, nil
}

func (c *Client) fetchAllItems(ctx context.Context, collectionID string) ([]Item, error) {
	path := fmt.Sprintf("/users/%s/collections/%s/items", c.userID, collectionID)

	var all []Item
	for start := 0; ; start += pageSize {
		query := url.Values{
			"format":  {"json"},
			"include": {"data"},
			"limit":   {strconv.Itoa(pageSize)},
			"start":   {strconv.Itoa(start)},
		}
		var page []Item
		header, err := c.get(ctx, path, query, &page)
		if err != nil {
			return nil, fmt.Errorf("fetch collection items: %w", err)
		}
		all = append(all, page...)

		total, _ := strconv.Atoi(header.Get("Total-Results"))
		if len(page) < pageSize || (total > 0 && len(all) >= total) {
			break
		}
	}
	return all, nil
}

func (c *Client) pdfChildren(ctx context.Context, itemKey string) ([]PDFAttachment, error) {
	var children []Item
	if _, err := c.get(ctx, fmt.Sprintf("/users/%s/items/%s/children", c.userID, itemKey), nil, &children); err != nil {
		return nil, err
	}

	var attachments []PDFAttachment
	for _, child := range children {
		if child.Data.ContentType != "application/pdf" {
			continue
		}
		title := child.Data.Title
		if title == "" {
			title = "PDF"
		}
		attachments = append(attachments, PDFAttachment{Key: child.Key, Title: title})
	}
	return attachments, nil
}

// DownloadPDF resolves the PDF attachment for an item (an explicit attachment
// key, the item itself if it is a PDF, or its first PDF child), downloads it
// into the temp directory and returns the local path.
func (c *Client) DownloadPDF(ctx context.Context, itemKey, attachmentKey string) (string, error) {
	fileKey := attachmentKey
	if fileKey == "" {
		var item Item
		if _, err := c.get(ctx, fmt.Sprintf("/users/%s/items/%s", c.userID, itemKey), nil, &item); err != nil {
			return "", fmt.Errorf("fetch item %s: %w", itemKey, err)
		}
		if item.Data.ContentType == "application/pdf" {
			fileKey = itemKey
		} else {
			attachments, err := c.pdfChildren(ctx, itemKey)
			if err != nil {
				return "", fmt.Errorf("fetch children of %s: %w", itemKey, err)
			}
			if len(attachments) == 0 {
				return "", fmt.Errorf("no PDF attachment found for item %s", itemKey)
			}
			fileKey = attachments[0].Key
		}
	}

	data, err := c.getFile(ctx, fmt.Sprintf("/users/%s/items/%s/file", c.userID, fileKey))
	if err != nil {
		return "", fmt.Errorf("download PDF for item %s: %w", itemKey, err)
	}

	if err := os.MkdirAll(c.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(c.tempDir, itemKey+".pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write PDF: %w", err)
	}

	c.logger.Info("downloaded PDF",
		zap.String("item_key", itemKey),
		zap.String("path", path),
		zap.Int("size_bytes", len(data)))
	return path, nil
}

// CleanupTemp removes downloaded PDFs. Called on shutdown.
func (c *Client) CleanupTemp() {
	entries, err := os.ReadDir(c.tempDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.tempDir, entry.Name())); err != nil {
			c.logger.Error("failed to delete temp file",
				zap.Error(err),
				zap.String("name", entry.Name()))
		}
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	req, err := c.newRequest(ctx, path, query)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("zotero api returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resp.Header, nil
}

func (c *Client) getFile(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("zotero api returned status %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Zotero-API-Version", apiVersion)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}
