package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mojocn/base64Captcha"
	"go.uber.org/zap"

	"github.com/noah-isme/admin-console-api/internal/models"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
	"github.com/noah-isme/admin-console-api/pkg/jobs"
)

// Challenge delivery channels.
const (
	ChannelImage = "image"
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

const deliveryJobType = "challenge_delivery"

type challengeStore interface {
	Save(ctx context.Context, id, answer string, ttl time.Duration) error
	Consume(ctx context.Context, id, answer string) (matched bool, found bool, err error)
}

// ChallengeSender delivers SMS/email challenge codes out of band.
type ChallengeSender interface {
	Send(ctx context.Context, channel, destination, code string) error
}

// NoopSender is the default sender until a real provider is wired.
type NoopSender struct{}

// Send is a no-op implementation.
func (NoopSender) Send(_ context.Context, _, _, _ string) error { return nil }

// ChallengeConfig tunes challenge generation.
type ChallengeConfig struct {
	TTL         time.Duration
	CodeLength  int
	ImageWidth  int
	ImageHeight int
	SendTimeout time.Duration
}

// ChallengeService generates and validates short-lived single-use login
// challenges.
type ChallengeService struct {
	store  challengeStore
	sender ChallengeSender
	queue  *jobs.Queue
	driver *base64Captcha.DriverDigit
	config ChallengeConfig
	logger *zap.Logger
}

type deliveryPayload struct {
	Channel     string
	Destination string
	Code        string
}

// NewChallengeService constructs a ChallengeService. The queue may be nil, in
// which case SMS/email codes are dispatched synchronously.
func NewChallengeService(store challengeStore, sender ChallengeSender, queue *jobs.Queue, cfg ChallengeConfig, logger *zap.Logger) *ChallengeService {
	if sender == nil {
		sender = NoopSender{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 120 * time.Second
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 4
	}
	if cfg.ImageWidth <= 0 {
		cfg.ImageWidth = 160
	}
	if cfg.ImageHeight <= 0 {
		cfg.ImageHeight = 60
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	driver := base64Captcha.NewDriverDigit(cfg.ImageHeight, cfg.ImageWidth, cfg.CodeLength, 0.7, 80)

	return &ChallengeService{
		store:  store,
		sender: sender,
		queue:  queue,
		driver: driver,
		config: cfg,
		logger: logger,
	}
}

// Generate creates a new challenge for the given channel. Image challenges
// return the rendered picture as a base64 data string; SMS/email challenges
// dispatch the code to the destination and return only the challenge id.
func (s *ChallengeService) Generate(ctx context.Context, channel, destination string) (*models.ChallengeInfo, error) {
	id := uuid.NewString()

	var rendered, code string
	switch channel {
	case ChannelImage, "":
		_, content, answer := s.driver.GenerateIdQuestionAnswer()
		item, err := s.driver.DrawCaptcha(content)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render challenge")
		}
		rendered = item.EncodeB64string()
		code = answer
	case ChannelSMS, ChannelEmail:
		if destination == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "destination is required for "+channel+" challenges")
		}
		var err error
		code, err = randomDigits(s.config.CodeLength)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate challenge code")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported challenge channel")
	}

	if err := s.store.Save(ctx, id, code, s.config.TTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store challenge")
	}

	if channel == ChannelSMS || channel == ChannelEmail {
		if err := s.dispatch(ctx, channel, destination, code); err != nil {
			return nil, err
		}
	}

	return &models.ChallengeInfo{
		ChallengeID: id,
		Rendered:    rendered,
		ExpiresIn:   int64(s.config.TTL.Seconds()),
	}, nil
}

// Validate consumes the challenge on success. The check-and-delete happens as
// one store-side operation, so under concurrent validation only the first
// correct answer succeeds; later attempts observe an absent record.
func (s *ChallengeService) Validate(ctx context.Context, id, answer string) error {
	if id == "" || answer == "" {
		return appErrors.ErrChallengeExpired
	}
	matched, found, err := s.store.Consume(ctx, id, answer)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate challenge")
	}
	if !found {
		return appErrors.ErrChallengeExpired
	}
	if !matched {
		return appErrors.ErrChallengeMismatch
	}
	return nil
}

// HandleDelivery is the queue handler for asynchronous challenge dispatch.
func (s *ChallengeService) HandleDelivery(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(deliveryPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type for %s job", job.Type)
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
	defer cancel()
	return s.sender.Send(sendCtx, payload.Channel, payload.Destination, payload.Code)
}

func (s *ChallengeService) dispatch(ctx context.Context, channel, destination, code string) error {
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    deliveryJobType,
			Payload: deliveryPayload{Channel: channel, Destination: destination, Code: code},
		})
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue challenge delivery")
		}
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
	defer cancel()
	if err := s.sender.Send(sendCtx, channel, destination, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deliver challenge")
	}
	return nil
}

func randomDigits(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	digits := make([]byte, n)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits), nil
}
