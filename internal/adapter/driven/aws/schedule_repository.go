package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	schedTypes "github.com/aws/aws-sdk-go-v2/service/scheduler/types"
	"github.com/inconshreveable/log15"

	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/domain/repository"
)

// at() expressions take a local-less timestamp; schedules are created with an
// explicit UTC timezone so the instant is unambiguous.
const atExpressionLayout = "2006-01-02T15:04:05"

type schedulerAPI interface {
	CreateSchedule(ctx context.Context, params *scheduler.CreateScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.CreateScheduleOutput, error)
	DeleteSchedule(ctx context.Context, params *scheduler.DeleteScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.DeleteScheduleOutput, error)
}

// ScheduleRepositoryImpl implementa o ScheduleRepository sobre o EventBridge
// Scheduler.
type ScheduleRepositoryImpl struct {
	client    schedulerAPI
	group     string
	targetArn string
	roleArn   string
	log       log15.Logger
}

// NewScheduleRepository cria uma nova implementação do ScheduleRepository.
func NewScheduleRepository(cfg aws.Config, group, targetArn, roleArn string, logger log15.Logger) repository.ScheduleRepository {
	return &ScheduleRepositoryImpl{
		client:    scheduler.NewFromConfig(cfg),
		group:     group,
		targetArn: targetArn,
		roleArn:   roleArn,
		log:       logger,
	}
}

func (r *ScheduleRepositoryImpl) CreateCollectionSchedule(ctx context.Context, task entity.ScheduledCollectionTask, at time.Time) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal collection task: %w", err)
	}

	_, err = r.client.CreateSchedule(ctx, &scheduler.CreateScheduleInput{
		Name:                       aws.String(task.ScheduleName),
		GroupName:                  aws.String(r.group),
		ScheduleExpression:         aws.String(fmt.Sprintf("at(%s)", at.UTC().Format(atExpressionLayout))),
		ScheduleExpressionTimezone: aws.String("UTC"),
		FlexibleTimeWindow: &schedTypes.FlexibleTimeWindow{
			Mode: schedTypes.FlexibleTimeWindowModeOff,
		},
		Target: &schedTypes.Target{
			Arn:     aws.String(r.targetArn),
			RoleArn: aws.String(r.roleArn),
			Input:   aws.String(string(payload)),
		},
		ActionAfterCompletion: schedTypes.ActionAfterCompletionDelete,
	})
	if err != nil {
		var conflict *schedTypes.ConflictException
		if errors.As(err, &conflict) {
			// Retries do publicador reentregam o mesmo evento; o schedule já
			// existente é o resultado desejado.
			r.log.Info("collection schedule already exists", "name", task.ScheduleName)
			return nil
		}
		return fmt.Errorf("failed to create collection schedule %s: %w", task.ScheduleName, err)
	}

	r.log.Info("collection schedule created",
		"name", task.ScheduleName, "at", at.UTC().Format(time.RFC3339), "accountId", task.AccountID)
	return nil
}

func (r *ScheduleRepositoryImpl) DeleteSchedule(ctx context.Context, name string) error {
	_, err := r.client.DeleteSchedule(ctx, &scheduler.DeleteScheduleInput{
		Name:      aws.String(name),
		GroupName: aws.String(r.group),
	})
	if err != nil {
		var notFound *schedTypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete schedule %s: %w", name, err)
	}
	return nil
}
