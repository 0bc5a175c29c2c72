package handlers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/deepgram/studio/internal/domain/chat/models"
	"github.com/deepgram/studio/internal/domain/provider"
)

// fakeProvider answers Generate with a canned response and StreamChat with canned chunks
type fakeProvider struct {
	mu          sync.Mutex
	generateReq []provider.GenerateRequest
	generateRes *provider.GenerateResponse
	generateErr error
	chatChunks  []provider.Chunk
	// hold, when set, blocks Generate until closed
	hold    chan struct{}
	entered chan struct{}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) StreamChat(ctx context.Context, messages []provider.Message) (<-chan provider.Chunk, error) {
	out := make(chan provider.Chunk, len(f.chatChunks))
	for _, chunk := range f.chatChunks {
		out <- chunk
	}
	close(out)
	return out, nil
}

func (f *fakeProvider) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.GenerateResponse, error) {
	f.mu.Lock()
	f.generateReq = append(f.generateReq, req)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.hold != nil {
		<-f.hold
	}
	return f.generateRes, f.generateErr
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.generateReq)
}

// fakeStreamer implements chat.Streamer
type fakeStreamer struct {
	chunks  []provider.Chunk
	openErr error
	// gate, when set, is received from before each chunk is sent
	gate    chan struct{}
	history atomic.Value
}

func (f *fakeStreamer) Stream(ctx context.Context, history []models.Message) (<-chan provider.Chunk, error) {
	f.history.Store(history)
	if f.openErr != nil {
		return nil, f.openErr
	}

	out := make(chan provider.Chunk)
	go func() {
		defer close(out)
		for _, chunk := range f.chunks {
			if f.gate != nil {
				select {
				case <-f.gate:
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (f *fakeStreamer) lastHistory() []models.Message {
	h, _ := f.history.Load().([]models.Message)
	return h
}

var errUpstream = errors.New("upstream model overloaded\nrequest id: 1234\nstack: ...")
