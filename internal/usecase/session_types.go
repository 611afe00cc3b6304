package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"rightskeeper/internal/ports"
)

type activeRecording struct {
	cancel    context.CancelFunc
	audio     ports.AudioSession
	filename  string
	startedAt time.Time

	meter    *powerMeter
	stopping atomic.Bool

	tickStop chan struct{}
	tickDone chan struct{}
	pumpDone chan struct{}
}

type activePlayback struct {
	cancel      context.CancelFunc
	session     ports.PlaybackSession
	recordingID string
	watchDone   chan struct{}
}
