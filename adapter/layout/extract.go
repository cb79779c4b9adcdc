package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/RichardKnop/pdfrag"
)

type item struct {
	Left       float64 `json:"left"`
	Top        float64 `json:"top"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageNumber int     `json:"page_number"`
	PageWidth  float64 `json:"page_width"`
	PageHeight float64 `json:"page_height"`
	Text       string  `json:"text"`
	Type       string  `json:"type"`
}

var textTypes = map[string]struct{}{
	"Title":          {},
	"Section header": {},
	"Text":           {},
	"List item":      {},
	"Footnote":       {},
	"Caption":        {},
	"Table":          {},
}

// Extract sends the document to the layout service and joins the text
// segments it returns into pages. Pages without any segment are returned
// blank so page numbers stay aligned with the document.
//
//	curl -X POST -F 'file=@document.pdf' -F 'fast=true' http://localhost:5060
func (a *Adapter) Extract(ctx context.Context, fileName string, contents io.ReadSeeker) ([]pdfrag.Page, error) {
	items, err := a.extractItems(ctx, fileName, contents)
	if err != nil {
		return nil, err
	}

	var lastPage int
	for _, anItem := range items {
		lastPage = max(lastPage, anItem.PageNumber)
	}

	texts := make([][]string, lastPage)
	for _, anItem := range items {
		if _, ok := textTypes[anItem.Type]; !ok || anItem.PageNumber < 1 {
			continue
		}
		text := anItem.Text
		if anItem.Type == "Table" && strings.Contains(text, "<table") {
			text, err = tableText(a.logger, text)
			if err != nil {
				return nil, fmt.Errorf("error parsing table on page %d: %w", anItem.PageNumber, err)
			}
		}
		texts[anItem.PageNumber-1] = append(texts[anItem.PageNumber-1], text)
	}

	pages := make([]pdfrag.Page, 0, lastPage)
	for i, pageTexts := range texts {
		pages = append(pages, pdfrag.Page{
			Number: i + 1,
			Text:   strings.Join(pageTexts, "\n"),
		})
	}

	a.logger.Sugar().With(
		"file name", fileName,
		"segments", len(items),
		"pages", len(pages),
	).Info("extracted text")

	return pages, nil
}

func (a *Adapter) extractItems(ctx context.Context, fileName string, contents io.ReadSeeker) ([]item, error) {
	buf := new(bytes.Buffer)
	writer := multipart.NewWriter(buf)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, contents); err != nil {
		return nil, err
	}
	if err := writer.WriteField("fast", "true"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling layout service: %w", err)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("layout service returned status %d: %s", resp.StatusCode, string(respData))
	}

	items := []item{}
	if err := json.Unmarshal(respData, &items); err != nil {
		return nil, fmt.Errorf("error decoding layout segments: %w", err)
	}

	return items, nil
}
