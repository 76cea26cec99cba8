package notification

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/pkg/config"
	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
	"github.com/yuvalk87/mofet-forms-app/pkg/metrics"
)

// WebhookNotifier 审批事件Webhook推送，带HMAC签名
type WebhookNotifier struct {
	WebhookURL string
	Secret     string
	client     *http.Client
}

func NewWebhookNotifier(webhookURL, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		WebhookURL: webhookURL,
		Secret:     secret,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send 推送事件负载
func (n *WebhookNotifier) Send(event string, payload map[string]interface{}) error {
	timestamp := time.Now().Unix()
	message := map[string]interface{}{
		"event":     event,
		"timestamp": fmt.Sprintf("%d", timestamp),
		"sign":      n.genSign(timestamp),
		"payload":   payload,
	}

	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	resp, err := n.client.Post(n.WebhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook返回状态码 %d", resp.StatusCode)
	}
	return nil
}

// genSign 生成签名: base64(hmac-sha256(timestamp + "\n" + secret))
func (n *WebhookNotifier) genSign(timestamp int64) string {
	if n.Secret == "" {
		return ""
	}
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, n.Secret)
	h := hmac.New(sha256.New, []byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// SMSNotifier 短信网关，验证码下发用
type SMSNotifier struct {
	GatewayURL string
	Token      string
	client     *http.Client
}

func NewSMSNotifier(gatewayURL, token string) *SMSNotifier {
	return &SMSNotifier{
		GatewayURL: gatewayURL,
		Token:      token,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send 发送短信
func (n *SMSNotifier) Send(phone, content string) error {
	message := map[string]interface{}{
		"phone":   phone,
		"content": content,
	}
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, n.GatewayURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("短信网关返回状态码 %d", resp.StatusCode)
	}
	return nil
}

// Manager 通知管理器：审批事件推Webhook，验证码走短信。
// 全部异步尽力送达，失败只记日志，不影响主流程。
type Manager struct {
	webhook *WebhookNotifier
	sms     *SMSNotifier
}

func NewManager(cfg *config.NotifyConfig) *Manager {
	m := &Manager{}
	if cfg == nil || !cfg.Enabled {
		return m
	}
	if cfg.WebhookURL != "" {
		m.webhook = NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookSecret)
	}
	if cfg.SMSGatewayURL != "" {
		m.sms = NewSMSNotifier(cfg.SMSGatewayURL, cfg.SMSGatewayToken)
	}
	return m
}

// FormSubmitted 表单提交事件
func (m *Manager) FormSubmitted(form *model.Form) {
	m.pushEvent("form.submitted", map[string]interface{}{
		"form_id":      form.ID,
		"template_id":  form.TemplateID,
		"initiator_id": form.InitiatorID,
	})
}

// DecisionRecorded 审批决策事件
func (m *Manager) DecisionRecorded(form *model.Form, record *model.FormApproval) {
	m.pushEvent("form.decision", map[string]interface{}{
		"form_id":     form.ID,
		"status":      string(form.Status),
		"step_number": record.StepNumber,
		"approver_id": record.ApproverID,
		"action":      string(record.Action),
	})
}

// FormFinalized 表单完结事件
func (m *Manager) FormFinalized(form *model.Form) {
	m.pushEvent("form.finalized", map[string]interface{}{
		"form_id": form.ID,
		"status":  string(form.Status),
	})
}

// SendOTP 下发登录验证码
func (m *Manager) SendOTP(user *model.User, code string) {
	if m.sms == nil || user.Phone == "" {
		logger.Warnf("短信通道不可用，用户 %s 的验证码未发送", user.ID)
		return
	}
	go func() {
		content := fmt.Sprintf("您的登录验证码是 %s，5分钟内有效。", code)
		if err := m.sms.Send(user.Phone, content); err != nil {
			metrics.NotificationsSentTotal.WithLabelValues("sms", "error").Inc()
			logger.Errorf("发送验证码短信失败: %v", err)
			return
		}
		metrics.NotificationsSentTotal.WithLabelValues("sms", "success").Inc()
	}()
}

func (m *Manager) pushEvent(event string, payload map[string]interface{}) {
	if m.webhook == nil {
		return
	}
	go func() {
		if err := m.webhook.Send(event, payload); err != nil {
			metrics.NotificationsSentTotal.WithLabelValues("webhook", "error").Inc()
			logger.Errorf("推送事件 %s 失败: %v", event, err)
			return
		}
		metrics.NotificationsSentTotal.WithLabelValues("webhook", "success").Inc()
	}()
}
