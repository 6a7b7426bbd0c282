package ticketing

import (
	"context"
	"fmt"
	"time"

	"campus-audit/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Submitter 提交记录的外部协作方
// 核心只负责把结构化记录交出去；对方的存储格式/工单建模不在范围内
type Submitter interface {
	Submit(ctx context.Context, record *models.SubmissionRecord) error
}

// Client 工单后端 HTTP 客户端
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// submitResponse 工单后端响应
type submitResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewClient 创建工单客户端
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger,
	}
}

// Submit 推送提交记录
// 失败由调用方处理：会话保持在提交前状态，重试安全
func (c *Client) Submit(ctx context.Context, record *models.SubmissionRecord) error {
	c.logger.Info("Submitting audit to ticketing backend",
		zap.String("submission_id", record.SubmissionID),
		zap.String("campus_id", record.CampusID),
		zap.String("rating", string(record.Rating)),
		zap.Int("issue_count", len(record.Issues)),
	)

	var response submitResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(record).
		SetResult(&response).
		Post("/api/v1/audit-submissions")

	if err != nil {
		c.logger.Error("Ticketing submission failed",
			zap.String("submission_id", record.SubmissionID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to submit to ticketing backend: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("ticketing backend returned status %d: %s",
			resp.StatusCode(), response.Message)
	}

	return nil
}

// NoopSubmitter 未配置工单后端时的占位实现
type NoopSubmitter struct {
	logger *zap.Logger
}

// NewNoopSubmitter 创建占位实现
func NewNoopSubmitter(logger *zap.Logger) *NoopSubmitter {
	return &NoopSubmitter{logger: logger}
}

// Submit 只记日志，不外发
func (n *NoopSubmitter) Submit(ctx context.Context, record *models.SubmissionRecord) error {
	n.logger.Info("Ticketing disabled, submission not forwarded",
		zap.String("submission_id", record.SubmissionID),
	)
	return nil
}
