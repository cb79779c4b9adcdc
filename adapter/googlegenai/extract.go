package googlegenai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"google.golang.org/genai"

	"github.com/RichardKnop/pdfrag"
)

const extractPrompt = `
Transcribe each page of this document. For each page, return all the text on
the page in reading order, including the data from tables on the page.
Response is a JSON array, with each item being the text of one page.
Return an empty string for pages without any text.
`

// Extract sends the whole document to the generative model and asks for the
// text of every page. It handles scanned documents the local extractor can't.
func (a *Adapter) Extract(ctx context.Context, fileName string, contents io.ReadSeeker) ([]pdfrag.Page, error) {
	documentBytes, err := io.ReadAll(contents)
	if err != nil {
		return nil, err
	}

	parts := []*genai.Part{
		{
			InlineData: &genai.Blob{
				MIMEType: "application/pdf",
				Data:     documentBytes,
			},
		},
		genai.NewPartFromText(extractPrompt),
	}
	genaiContents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeString,
			},
		},
	}

	a.logger.Sugar().With(
		"model", a.generativeModel,
		"file name", fileName,
		"size", len(documentBytes),
	).Info("extracting document")

	result, err := a.client.Models.GenerateContent(
		ctx,
		a.generativeModel,
		genaiContents,
		config,
	)
	if err != nil {
		return nil, fmt.Errorf("calling generative model: %w", upstreamError(err))
	}

	response := []string{}
	if err := json.Unmarshal([]byte(result.Text()), &response); err != nil {
		return nil, fmt.Errorf("decoding pages: %w", err)
	}

	pages := make([]pdfrag.Page, 0, len(response))
	for i, text := range response {
		pages = append(pages, pdfrag.Page{
			Number: i + 1,
			Text:   text,
		})
	}

	return pages, nil
}
