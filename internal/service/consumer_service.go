package service

import (
	"context"
	"encoding/json"
	"strings"

	"trawell-be/internal/dto"
	"trawell-be/internal/mapper"
	"trawell-be/internal/pkg/logger"
	"trawell-be/internal/repository/specification"
	"trawell-be/internal/repository/unitofwork"
	"trawell-be/pkg/events"
	"trawell-be/pkg/llm"
	"trawell-be/pkg/prompts"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerModule = "ConsumerService"

// IConsumerService runs the profile summary worker.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	llm        llm.LLMProvider
	prompts    *prompts.Set
	publisher  events.Publisher
	mapper     *mapper.ProfileMapper
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	promptSet *prompts.Set,
	publisher events.Publisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		llm:        llmProvider,
		prompts:    promptSet,
		publisher:  publisher,
		mapper:     mapper.NewProfileMapper(),
		logger:     log,
	}
}

// Consume subscribes and processes jobs until ctx is done.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ProfileSummaryJob
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Failed to unmarshal summary job", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	details := map[string]interface{}{"owner": payload.OwnerKey}
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	stored, err := uow.UserProfileRepository().FindOne(ctx, specification.ByOwnerKey{OwnerKey: payload.OwnerKey})
	if err != nil {
		cs.logger.Error(consumerModule, "Failed to load profile", map[string]interface{}{"owner": payload.OwnerKey, "error": err.Error()})
		msg.Nack()
		return
	}
	if stored == nil {
		cs.logger.Warn(consumerModule, "Profile disappeared before summary", details)
		msg.Ack()
		return
	}

	profile, err := cs.mapper.ToDomain(stored)
	if err != nil {
		cs.logger.Error(consumerModule, "Stored profile is unreadable", map[string]interface{}{"owner": payload.OwnerKey, "error": err.Error()})
		msg.Ack()
		return
	}

	prompt, err := cs.prompts.Render("summary_prompt", map[string]interface{}{"Profile": profile.Describe()})
	if err != nil {
		cs.logger.Error(consumerModule, "Failed to render summary prompt", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	// The summary is optional, so an unavailable model drops the job.
	summary, err := cs.llm.Generate(ctx, prompt, llm.WithTemperature(0.4))
	if err != nil {
		cs.logger.Warn(consumerModule, "Summary generation failed", map[string]interface{}{"owner": payload.OwnerKey, "error": err.Error()})
		msg.Ack()
		return
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		msg.Ack()
		return
	}

	if err := uow.UserProfileRepository().UpdateSummary(ctx, payload.OwnerKey, summary); err != nil {
		cs.logger.Error(consumerModule, "Failed to store summary", map[string]interface{}{"owner": payload.OwnerKey, "error": err.Error()})
		msg.Nack()
		return
	}

	if err := cs.publisher.Publish(ctx, events.ProfileSummarized(payload.OwnerKey, summary)); err != nil {
		cs.logger.Warn(consumerModule, "Failed to publish profile_summarized", map[string]interface{}{"owner": payload.OwnerKey, "error": err.Error()})
	}

	cs.logger.Info(consumerModule, "Profile summary stored", details)
	msg.Ack()
}
