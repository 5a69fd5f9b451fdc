package service

import (
	"fmt"
	"log"
	"time"

	"ledger/config"

	"gopkg.in/gomail.v2"
)

// Notifier 通知发送方
type Notifier interface {
	SendVerificationCode(toEmail, username, code string, ttl time.Duration) error
}

// NopNotifier 邮件服务未启用时使用，只记录日志
type NopNotifier struct{}

// SendVerificationCode 仅打印日志
func (NopNotifier) SendVerificationCode(toEmail, username, code string, ttl time.Duration) error {
	log.Printf("邮件服务未启用，跳过发送验证码: %s", toEmail)
	return nil
}

// NotifyAsync 异步发送通知，失败只记录日志
func NotifyAsync(what string, send func() error) {
	go func() {
		if err := send(); err != nil {
			log.Printf("发送%s失败: %v", what, err)
		}
	}()
}

// EmailService 邮件服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// NewNotifier 根据配置返回邮件服务或空实现
func NewNotifier(cfg *config.EmailConfig) Notifier {
	if cfg == nil || !cfg.Enabled {
		return NopNotifier{}
	}
	return NewEmailService(cfg)
}

// SendVerificationCode 发送注册验证码
func (s *EmailService) SendVerificationCode(toEmail, username, code string, ttl time.Duration) error {
	if !s.cfg.Enabled {
		return fmt.Errorf("邮件服务未启用，请配置 LEDGER_EMAIL_ENABLED=true")
	}
	subject := "【记账本】邮箱验证码"
	return s.sendEmail(toEmail, subject, s.verificationBody(username, code, ttl))
}

func (s *EmailService) verificationBody(username, code string, ttl time.Duration) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; }
        .header { background: linear-gradient(135deg, #10b981, #059669); color: white; padding: 30px; text-align: center; }
        .content { padding: 40px 30px; color: #333; line-height: 1.8; }
        .code { font-size: 36px; font-weight: bold; color: #059669; letter-spacing: 8px; font-family: 'Courier New', monospace; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>💰 记账本</h1></div>
        <div class="content">
            <p>%s，您好！</p>
            <p>请使用以下验证码完成账号注册：</p>
            <p style="text-align: center;"><span class="code">%s</span></p>
            <p>验证码有效期为 <strong>%d 分钟</strong>。如果这不是您本人的操作，请忽略此邮件。</p>
        </div>
        <div class="footer"><p>此邮件由系统自动发送，请勿回复</p></div>
    </div>
</body>
</html>
`, username, code, int(ttl.Minutes()))
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}
