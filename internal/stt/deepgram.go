package stt

import (
	"context"
	"errors"
	"fmt"

	listenv1rest "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	restinterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/supersurf/supersurf/internal/observability"
	"github.com/supersurf/supersurf/internal/resilience"
)

// DeepgramBackend transcribes utterance files with Deepgram's prerecorded
// REST API.
type DeepgramBackend struct {
	api      *listenv1rest.Client
	model    string
	language string
	log      zerolog.Logger
}

// NewDeepgramBackend creates the cloud transcription backend.
func NewDeepgramBackend(apiKey, model, language string) (*DeepgramBackend, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram api key is empty")
	}
	if model == "" {
		model = "nova-2"
	}
	if language == "" {
		language = "en"
	}

	c := listenClient.NewREST(apiKey, &interfaces.ClientOptions{})

	return &DeepgramBackend{
		api:      listenv1rest.New(c),
		model:    model,
		language: language,
		log:      observability.WithComponent("stt-deepgram"),
	}, nil
}

func (d *DeepgramBackend) Name() string { return "deepgram" }

// Transcribe sends the WAV file to the prerecorded endpoint and returns the
// top alternative of the first channel. Transient network failures are
// retried with backoff before the worker falls back to the local backend.
func (d *DeepgramBackend) Transcribe(ctx context.Context, wavPath string) (string, error) {
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.model,
		Language:    d.language,
		SmartFormat: true,
		Punctuate:   true,
		Keywords:    []string{"activate", "windsurf", "lovable"},
	}

	var res *restinterfaces.PreRecordedResponse
	err := resilience.Retry(func() error {
		r, err := d.api.FromFile(ctx, wavPath, options)
		if err != nil {
			return err
		}
		res = r
		return nil
	}, nil, resilience.IsRetryableNetworkError)
	if err != nil {
		observability.RecordError("deepgram_request", "stt")
		return "", fmt.Errorf("deepgram transcription: %w", err)
	}

	if res == nil || res.Results == nil || len(res.Results.Channels) == 0 ||
		len(res.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}

	transcript := res.Results.Channels[0].Alternatives[0].Transcript
	d.log.Debug().Str("transcript", transcript).Msg("deepgram transcription complete")
	return transcript, nil
}
