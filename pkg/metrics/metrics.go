package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Server Metrics

	// APIRequestsTotal API请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration API请求处理时长
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Workflow Metrics

	// FormsSubmittedTotal 提交的表单总数（按模板类型）
	FormsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forms_submitted_total",
			Help: "Total number of submitted forms",
		},
		[]string{"form_type"},
	)

	// ApprovalDecisionsTotal 审批决策总数（按动作）
	ApprovalDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Total number of approval decisions",
		},
		[]string{"action"},
	)

	// FormsCompletedTotal 完成的表单总数（按终态）
	FormsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forms_completed_total",
			Help: "Total number of forms reaching a terminal status",
		},
		[]string{"status"},
	)

	// TxRetriesTotal 事务因死锁/串行化冲突重试的次数
	TxRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workflow_tx_retries_total",
			Help: "Total number of workflow transaction retries on transient DB errors",
		},
	)

	// NotificationsSentTotal 已发送通知数（按渠道和结果）
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications sent",
		},
		[]string{"channel", "result"},
	)
)
