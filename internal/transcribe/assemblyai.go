package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/subs2srs/backend/internal/segment"
)

const defaultAssemblyAIBaseURL = "https://api.assemblyai.com"

// AssemblyAIClient talks to the AssemblyAI REST API: upload the audio, create
// a transcript job, poll it by id.
type AssemblyAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAssemblyAIClient creates a client. baseURL may be empty for the public
// API endpoint.
func NewAssemblyAIClient(apiKey, baseURL string) *AssemblyAIClient {
	if baseURL == "" {
		baseURL = defaultAssemblyAIBaseURL
	}
	return &AssemblyAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Minute, // uploads can be large
		},
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type createTranscriptRequest struct {
	AudioURL      string `json:"audio_url"`
	LanguageCode  string `json:"language_code"`
	SpeakerLabels bool   `json:"speaker_labels"`
	Punctuate     bool   `json:"punctuate"`
	FormatText    bool   `json:"format_text"`
}

type transcriptWord struct {
	Text    string `json:"text"`
	Start   int64  `json:"start"` // milliseconds
	End     int64  `json:"end"`   // milliseconds
	Speaker string `json:"speaker"`
}

type transcriptResponse struct {
	ID     string           `json:"id"`
	Status string           `json:"status"` // queued, processing, completed, error
	Error  string           `json:"error"`
	Words  []transcriptWord `json:"words"`
}

// Submit uploads the audio file and creates a transcription job with speaker
// diarization and punctuation enabled.
func (c *AssemblyAIClient) Submit(ctx context.Context, audioPath, language string) (string, error) {
	audioURL, err := c.upload(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}

	reqBody, err := json.Marshal(createTranscriptRequest{
		AudioURL:      audioURL,
		LanguageCode:  language,
		SpeakerLabels: true,
		Punctuate:     true,
		FormatText:    true,
	})
	if err != nil {
		return "", err
	}

	var created transcriptResponse
	if err := c.doJSON(ctx, "POST", "/v2/transcript", bytes.NewReader(reqBody), &created); err != nil {
		return "", fmt.Errorf("create transcript: %w", err)
	}

	log.Printf("[transcribe] submitted %s as transcript %s (language %s)", audioPath, created.ID, language)
	return created.ID, nil
}

// Poll fetches the external job once and maps its status. Millisecond
// timestamps are converted to seconds and speaker labels expanded to the
// "Speaker X" form used on cards.
func (c *AssemblyAIClient) Poll(ctx context.Context, jobID string) (*PollResult, error) {
	var resp transcriptResponse
	if err := c.doJSON(ctx, "GET", "/v2/transcript/"+jobID, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch transcript %s: %w", jobID, err)
	}

	switch resp.Status {
	case "completed":
		words := make([]segment.Word, 0, len(resp.Words))
		for _, w := range resp.Words {
			speaker := ""
			if w.Speaker != "" {
				speaker = "Speaker " + w.Speaker
			}
			words = append(words, segment.Word{
				Text:    w.Text,
				Start:   float64(w.Start) / 1000,
				End:     float64(w.End) / 1000,
				Speaker: speaker,
			})
		}
		return &PollResult{Status: StatusComplete, Words: words}, nil
	case "error":
		return &PollResult{Status: StatusFailed, ErrorMessage: resp.Error}, nil
	default:
		return &PollResult{Status: StatusPending}, nil
	}
}

// upload streams the audio file to the upload endpoint and returns the
// temporary URL referencing it.
func (c *AssemblyAIClient) upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/upload", f)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, string(body))
	}

	var up uploadResponse
	if err := json.Unmarshal(body, &up); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return up.UploadURL, nil
}

func (c *AssemblyAIClient) doJSON(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}
