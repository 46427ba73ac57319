package service

import (
	"sync"

	"go.uber.org/zap"

	"timetable-composer/internal/composer"
)

// noticeBufferSize 每个工作区保留的最大未读通知数
const noticeBufferSize = 100

// workspaceNotifier 工作区通知接收方
//
// 每条通知都写入结构化日志，同时缓存在内存中等待前端拉取。
// 缓冲区满时丢弃最旧的通知。
type workspaceNotifier struct {
	mu      sync.Mutex
	notices []composer.Notice
	logger  *zap.Logger
}

func newWorkspaceNotifier(logger *zap.Logger) *workspaceNotifier {
	return &workspaceNotifier{logger: logger}
}

func (n *workspaceNotifier) Notify(notice composer.Notice) {
	fields := []zap.Field{zap.String("level", string(notice.Level))}
	if notice.SessionID != "" {
		fields = append(fields, zap.String("session_id", notice.SessionID))
	}
	switch notice.Level {
	case composer.LevelError, composer.LevelWarning:
		n.logger.Warn(notice.Message, fields...)
	default:
		n.logger.Info(notice.Message, fields...)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) >= noticeBufferSize {
		n.notices = n.notices[1:]
	}
	n.notices = append(n.notices, notice)
}

// Drain 取走全部未读通知
func (n *workspaceNotifier) Drain() []composer.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.notices
	n.notices = nil
	if out == nil {
		out = []composer.Notice{}
	}
	return out
}
