package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Sender shows a desktop notification
type Sender interface {
	Send(ctx context.Context, title, message string) error
}

// LinuxSender sends notifications on Linux using notify-send
type LinuxSender struct{}

func (LinuxSender) Send(ctx context.Context, title, message string) error {
	return exec.CommandContext(ctx, "notify-send", "--app-name=ghmirror", title, message).Run()
}

// MacOSSender sends notifications on macOS using osascript
type MacOSSender struct{}

func (MacOSSender) Send(ctx context.Context, title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.CommandContext(ctx, "osascript", "-e", script).Run()
}

// WindowsSender sends notifications on Windows using PowerShell
type WindowsSender struct{}

func (WindowsSender) Send(ctx context.Context, title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("ghmirror").Show($toast)
	`, xmlEscape(title), xmlEscape(message))

	return exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

var xmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}

// SenderForOS returns the Sender for goos, or nil when unsupported
func SenderForOS(goos string) Sender {
	switch goos {
	case "linux":
		return LinuxSender{}
	case "darwin":
		return MacOSSender{}
	case "windows":
		return WindowsSender{}
	}
	return nil
}

// Desktop shows events as desktop notifications
type Desktop struct {
	sender Sender
}

// NewDesktop creates a Desktop notifier for the current platform
func NewDesktop() *Desktop {
	return &Desktop{sender: SenderForOS(runtime.GOOS)}
}

// NewDesktopWithSender creates a Desktop notifier using sender
func NewDesktopWithSender(sender Sender) *Desktop {
	return &Desktop{sender: sender}
}

// Notify sends the event. Unsupported platforms are a no-op.
func (d *Desktop) Notify(ctx context.Context, e Event) error {
	if d.sender == nil {
		return nil
	}
	if err := d.sender.Send(ctx, e.Title(), e.Message()); err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	return nil
}
