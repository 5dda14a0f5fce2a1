package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"

	"github.com/KHABI-TEQ/console-admin/internal/config"
	"github.com/KHABI-TEQ/console-admin/internal/email"
	"github.com/KHABI-TEQ/console-admin/internal/services"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

const (
	TypeEmailDelivery   = "email:deliver"
	TypeImageProcess    = "image:process"
	TypePendingReminder = "inspection:pending:remind"
)

// NewClient returns an asynq client sharing the application's Redis instance.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	})
}

// TaskProcessor holds the dependencies task handlers need.
type TaskProcessor struct {
	cfg               *config.Config
	emailSender       email.Sender
	inspectionService services.IInspectionService
	propertyService   services.IPropertyService
	s3Client          *s3.Client
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	inspectionService services.IInspectionService,
	propertyService services.IPropertyService,
	s3Client *s3.Client,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:               cfg,
		emailSender:       emailSender,
		inspectionService: inspectionService,
		propertyService:   propertyService,
		s3Client:          s3Client,
	}
}

// SetupServer configures and starts an asynq server. Which handlers
// register depends on the worker mode: the bg worker takes email and
// reminder tasks, the img worker takes the image pipeline. The returned
// server is already running; callers own its Shutdown.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker bool, isBgWorker bool) *asynq.Server {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(serverOpt, asynq.Config{
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
			"images":   5,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
		}),
	})

	mux := asynq.NewServeMux()

	if isBgWorker {
		mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
		mux.HandleFunc(TypePendingReminder, processor.HandlePendingReminderTask)
		log.Println("Registered background task handlers.")
	}
	if isImageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Println("Registered image processing task handlers.")
	}
	if !isBgWorker && !isImageWorker {
		log.Println("Running in API mode, no task server started.")
		return nil
	}

	if err := srv.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}
	return srv
}

// SetupScheduler registers the periodic stale-approval sweep and starts the
// scheduler. Returns nil when the sweep is disabled.
func SetupScheduler(rdb *redis.Client, cfg *config.Config) *asynq.Scheduler {
	if !cfg.PendingSweepEnabled {
		log.Println("Pending approval sweep disabled.")
		return nil
	}
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}, nil)
	if _, err := scheduler.Register("@every 1h", NewPendingReminderTask()); err != nil {
		log.Fatalf("Could not register pending reminder schedule: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Could not start task scheduler: %v", err)
	}
	return scheduler
}

// EmailTaskPayload carries a fully-rendered message; handlers never render
// templates so a retried task always sends the same content.
type EmailTaskPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewEmailTask builds an enqueueable email delivery task.
func NewEmailTask(to, subject, body string) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailTaskPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, payload), nil
}

func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	from := p.cfg.SmtpFromAddress
	raw := email.ComposeMessage(from, []string{payload.To}, payload.Subject, payload.Body)
	if err := p.emailSender.Send(ctx, []string{payload.To}, payload.Subject, raw); err != nil {
		log.Printf("Email delivery to %s failed: %v", payload.To, err)
		return err
	}
	log.Printf("Email task processed: To=%s, Subject=%q", payload.To, payload.Subject)
	return nil
}

// ImageTaskPayload points at a freshly-uploaded property photo.
type ImageTaskPayload struct {
	S3Key      string `json:"s3_key"`
	PropertyID string `json:"property_id"`
}

// NewImageTask builds an image processing task routed to the images queue.
func NewImageTask(s3Key string, propertyID utils.ShortID) (*asynq.Task, error) {
	payload, err := json.Marshal(ImageTaskPayload{S3Key: s3Key, PropertyID: propertyID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image payload: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, payload, asynq.Queue("images")), nil
}

// HandleImageProcessTask downloads an uploaded photo, shrinks it to the
// configured max dimension, writes it back and attaches the key to its
// property.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	propertyID, err := utils.ParseShortID(payload.PropertyID)
	if err != nil {
		return fmt.Errorf("invalid property ID in payload: %w", asynq.SkipRetry)
	}

	out, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("S3 object %s not found, upload likely failed.", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image from S3: %w", err)
	}
	defer out.Body.Close()

	imgData, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("failed to read image data: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	processed := imgData
	contentType := "image/" + format
	if uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim {
		resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image: %w", err)
		}
		processed = buf.Bytes()
		contentType = "image/jpeg"
		log.Printf("Resized image %s to %dx%d", payload.S3Key, resized.Bounds().Dx(), resized.Bounds().Dy())
	}

	_, err = p.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.AwsS3Bucket),
		Key:         aws.String(payload.S3Key),
		Body:        bytes.NewReader(processed),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload processed image: %w", err)
	}

	if err := p.propertyService.AddImage(ctx, propertyID, payload.S3Key); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			// Property vanished between upload and processing; drop the photo.
			log.Printf("Property %s gone, deleting orphan image %s", payload.PropertyID, payload.S3Key)
			_, _ = p.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(p.cfg.AwsS3Bucket),
				Key:    aws.String(payload.S3Key),
			})
			return fmt.Errorf("property not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to attach image to property: %w", err)
	}

	log.Printf("Image task processed: Key=%s, PropertyID=%s", payload.S3Key, payload.PropertyID)
	return nil
}

// NewPendingReminderTask builds the periodic stale-approval sweep task.
func NewPendingReminderTask() *asynq.Task {
	return asynq.NewTask(TypePendingReminder, nil, asynq.Queue("low"))
}

// HandlePendingReminderTask emails the operations inbox about bookings that
// have sat in pending_transaction past the configured age.
func (p *TaskProcessor) HandlePendingReminderTask(ctx context.Context, t *asynq.Task) error {
	stale, err := p.inspectionService.FindStalePending(ctx, p.cfg.PendingReminderAge)
	if err != nil {
		return fmt.Errorf("failed to find stale pending bookings: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "The following %d inspection requests are awaiting transaction approval:\n\n", len(stale))
	for _, b := range stale {
		fmt.Fprintf(&body, "- %s at %s (requested by %s, waiting since %s)\n",
			b.ID, b.PropertyAddress, b.BuyerEmail, b.UpdatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&body, "\nReview them at %s/inspections\n", p.cfg.ConsoleBaseURL)

	to := p.cfg.SmtpFromAddress
	subject := fmt.Sprintf("%s: %d inspections Awaiting Review", p.cfg.AppName, len(stale))
	raw := email.ComposeMessage(p.cfg.SmtpFromAddress, []string{to}, subject, body.String())
	if err := p.emailSender.Send(ctx, []string{to}, subject, raw); err != nil {
		return fmt.Errorf("failed to send pending reminder: %w", err)
	}
	log.Printf("Pending reminder sent for %d bookings", len(stale))
	return nil
}
