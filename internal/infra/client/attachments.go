package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"

	"github.com/boddenberg/spendlog/internal/domain"
)

// ============================================================
// Attachments
// ============================================================

// UploadFile sends r as the multipart field "file" and returns the
// stored attachment.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) (*domain.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out domain.UploadResult
	err = c.send(ctx, http.MethodPost, "/receipts/upload", &buf, mw.FormDataContentType(), func(resp *http.Response) error {
		return decodeInto(resp.Body, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AttachmentName extracts the stored file name from an attachment URL,
// absolute or relative.
func AttachmentName(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid file URL %q: %w", fileURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", errors.New("invalid file URL")
	}
	return name, nil
}

// DeleteFile removes the attachment behind fileURL.
func (c *Client) DeleteFile(ctx context.Context, fileURL string) error {
	name, err := AttachmentName(fileURL)
	if err != nil {
		return err
	}
	return c.Do(ctx, http.MethodDelete, "/receipts/upload/"+url.PathEscape(name), nil, nil)
}

// ReplaceAttachment uploads a new file, points the receipt at it, then
// deletes the previous file. Steps run in order with no rollback: a
// failure leaves whatever the earlier steps did in place. When only the
// final delete fails, the updated receipt is returned with the error.
func (c *Client) ReplaceAttachment(ctx context.Context, receiptID int64, oldURL, filename string, r io.Reader) (*domain.Receipt, error) {
	up, err := c.UploadFile(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	receipt, err := c.UpdateReceipt(ctx, receiptID, &domain.ReceiptUpdate{ImageURL: &up.URL})
	if err != nil {
		return nil, fmt.Errorf("attach %s to receipt %d: %w", up.URL, receiptID, err)
	}

	if oldURL != "" && oldURL != up.URL {
		if err := c.DeleteFile(ctx, oldURL); err != nil {
			return receipt, fmt.Errorf("delete previous attachment: %w", err)
		}
	}
	return receipt, nil
}

// RemoveAttachment clears the receipt's image_url, then deletes the file.
func (c *Client) RemoveAttachment(ctx context.Context, receiptID int64, fileURL string) (*domain.Receipt, error) {
	empty := ""
	receipt, err := c.UpdateReceipt(ctx, receiptID, &domain.ReceiptUpdate{ImageURL: &empty})
	if err != nil {
		return nil, fmt.Errorf("detach from receipt %d: %w", receiptID, err)
	}
	if fileURL == "" {
		return receipt, nil
	}
	if err := c.DeleteFile(ctx, fileURL); err != nil {
		return receipt, fmt.Errorf("delete attachment: %w", err)
	}
	return receipt, nil
}
