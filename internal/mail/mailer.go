package mail

import "log"

// 送信失敗しても呼び出し側の処理は止めない前提の通知メール。
type Mailer interface {
	SendWelcome(toEmail string) error
}

// 実際のSMTP接続の代わりにログへ出すだけの実装。
// 本番の配送基盤が決まるまでのつなぎ。
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendWelcome(toEmail string) error {
	log.Printf("[mail] welcome mail to %s", toEmail)
	return nil
}
