package service

import (
	"fmt"
	"testing"

	"go.uber.org/zap"

	"timetable-composer/internal/composer"
)

func TestWorkspaceNotifier_DrainClears(t *testing.T) {
	n := newWorkspaceNotifier(zap.NewNop())
	n.Notify(composer.Notice{Level: composer.LevelWarning, Message: "conflict", SessionID: "d1"})
	n.Notify(composer.Notice{Level: composer.LevelSuccess, Message: "ok"})

	got := n.Drain()
	if len(got) != 2 || got[0].SessionID != "d1" {
		t.Errorf("期望按顺序返回 2 条通知，实际 %+v", got)
	}
	if again := n.Drain(); again == nil || len(again) != 0 {
		t.Errorf("取走后应返回空切片，实际 %#v", again)
	}
}

func TestWorkspaceNotifier_DropsOldest(t *testing.T) {
	n := newWorkspaceNotifier(zap.NewNop())
	for i := 0; i < noticeBufferSize+5; i++ {
		n.Notify(composer.Notice{Level: composer.LevelInfo, Message: fmt.Sprintf("n-%d", i)})
	}

	got := n.Drain()
	if len(got) != noticeBufferSize {
		t.Fatalf("期望保留 %d 条，实际 %d", noticeBufferSize, len(got))
	}
	if got[0].Message != "n-5" {
		t.Errorf("期望最旧的 5 条被丢弃，首条实际为 %s", got[0].Message)
	}
}
