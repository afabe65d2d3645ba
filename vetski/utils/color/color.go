// Package color styles vetski CLI output.
package color

import (
	"github.com/fatih/color"
)

var (
	promptColor      = color.New(color.FgCyan, color.Bold)
	infoColor        = color.New(color.FgGreen)
	warningColor     = color.New(color.FgYellow, color.Bold)
	errorColor       = color.New(color.FgRed, color.Bold)
	replyColor       = color.New(color.FgHiYellow)
	summaryOKColor   = color.New(color.FgGreen, color.Bold)
	summaryFailColor = color.New(color.FgMagenta, color.Bold)
)

func Prompt(s string) string {
	return promptColor.Sprint(s)
}

func Info(s string) string {
	return infoColor.Sprint(s)
}

func Warning(s string) string {
	return warningColor.Sprint(s)
}

func Error(s string) string {
	return errorColor.Sprint(s)
}

// AssistantReply colours assistant deltas as they stream in.
func AssistantReply(s string) string {
	return replyColor.Sprint(s)
}

// UploadSummary colours the closing line of an upload run by outcome.
func UploadSummary(s string, failed bool) string {
	if failed {
		return summaryFailColor.Sprint(s)
	}
	return summaryOKColor.Sprint(s)
}
