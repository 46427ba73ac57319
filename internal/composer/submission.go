package composer

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Violation 一个未填写完整的草稿
type Violation struct {
	SessionID string  `json:"session_id"`
	ClassCode string  `json:"class_code"`
	Missing   []Field `json:"missing"`
}

func (v Violation) String() string {
	missing := make([]string, 0, len(v.Missing))
	for _, f := range v.Missing {
		missing = append(missing, string(f))
	}
	return fmt.Sprintf("%s[%s] 缺少 %s", v.ClassCode, v.SessionID, strings.Join(missing, ","))
}

// SubmittedSession 提交给后端的扁平课次
type SubmittedSession struct {
	SessionID   string    `json:"-"` // 本地草稿 ID，仅用于结果回写
	Label       string    `json:"label"`
	Day         int       `json:"day"`
	StartPeriod int       `json:"start_period"`
	EndPeriod   int       `json:"end_period"`
	RoomID      string    `json:"room_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// SubmissionRequest 一个 (班级, 教师) 分组的提交请求
type SubmissionRequest struct {
	ClassID      string             `json:"class_id"`
	ClassCode    string             `json:"class_code"`
	SemesterID   string             `json:"semester_id"`
	InstructorID *string            `json:"instructor_id,omitempty"`
	Sessions     []SubmittedSession `json:"sessions"`
}

// SessionIDs 本组包含的草稿 ID
func (r SubmissionRequest) SessionIDs() []string {
	ids := make([]string, 0, len(r.Sessions))
	for _, s := range r.Sessions {
		ids = append(ids, s.SessionID)
	}
	return ids
}

// SubmissionFailure 单个分组的失败记录
type SubmissionFailure struct {
	ClassCode    string   `json:"class_code"`
	InstructorID string   `json:"instructor_id,omitempty"`
	SessionIDs   []string `json:"session_ids"`
	Message      string   `json:"message"`
}

// SubmissionOutcome 批量提交结果汇总
type SubmissionOutcome struct {
	SuccessCount       int                 `json:"success_count"`
	FailureCount       int                 `json:"failure_count"`
	Failures           []SubmissionFailure `json:"failures,omitempty"`
	AcceptedSessionIDs []string            `json:"accepted_session_ids,omitempty"`
}

// ValidateForSubmission 每个不完整草稿产生一条违规；已发布课次忽略
func ValidateForSubmission(drafts []Session) []Violation {
	var violations []Violation
	for i := range drafts {
		s := &drafts[i]
		if s.IsPublished() {
			continue
		}
		if missing := MissingFields(s); len(missing) > 0 {
			violations = append(violations, Violation{
				SessionID: s.ID,
				ClassCode: s.Class.ClassCode,
				Missing:   missing,
			})
		}
	}
	return violations
}

// BuildSubmissionGroups 按 (班级, 教师) 分组构建提交请求
//
// 分组顺序与组内课次顺序均按草稿首次出现的顺序；课次标签为
// "<班级代码>_<组内序号>"。调用方需先通过 ValidateForSubmission。
func BuildSubmissionGroups(drafts []Session, classes map[string]ClassInfo, semesterID string) []SubmissionRequest {
	type groupKey struct{ classID, instructorID string }

	groups := make(map[groupKey]*SubmissionRequest)
	var order []groupKey

	for i := range drafts {
		s := &drafts[i]
		if s.IsPublished() || !IsComplete(s) {
			continue
		}

		classID := s.Class.ClassID
		classCode := s.Class.ClassCode
		instructorID := s.Class.InstructorID
		if info, ok := classes[classID]; ok {
			classCode = info.Code
			if instructorID == "" {
				instructorID = info.InstructorID
			}
		}

		key := groupKey{classID: classID, instructorID: instructorID}
		req, ok := groups[key]
		if !ok {
			req = &SubmissionRequest{
				ClassID:    classID,
				ClassCode:  classCode,
				SemesterID: semesterID,
			}
			if instructorID != "" {
				id := instructorID
				req.InstructorID = &id
			}
			groups[key] = req
			order = append(order, key)
		}

		req.Sessions = append(req.Sessions, SubmittedSession{
			SessionID:   s.ID,
			Label:       fmt.Sprintf("%s_%d", classCode, len(req.Sessions)+1),
			Day:         *s.Day,
			StartPeriod: *s.StartPeriod,
			EndPeriod:   *s.EndPeriod,
			RoomID:      *s.RoomID,
			StartDate:   *s.StartDate,
			EndDate:     *s.EndDate,
		})
	}

	out := make([]SubmissionRequest, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	return out
}

// SubmitAll 逐组顺序提交，单组失败不影响后续分组，也不回滚已成功的分组
func SubmitAll(ctx context.Context, sink SubmissionSink, requests []SubmissionRequest) SubmissionOutcome {
	var outcome SubmissionOutcome
	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			outcome.recordFailure(req, err)
			continue
		}
		if err := sink.SubmitSchedule(ctx, req); err != nil {
			outcome.recordFailure(req, err)
			continue
		}
		outcome.SuccessCount++
		outcome.AcceptedSessionIDs = append(outcome.AcceptedSessionIDs, req.SessionIDs()...)
	}
	return outcome
}

func (o *SubmissionOutcome) recordFailure(req SubmissionRequest, err error) {
	o.FailureCount++
	f := SubmissionFailure{
		ClassCode:  req.ClassCode,
		SessionIDs: req.SessionIDs(),
		Message:    err.Error(),
	}
	if req.InstructorID != nil {
		f.InstructorID = *req.InstructorID
	}
	o.Failures = append(o.Failures, f)
}

// Summary 汇总文案，供一次性通知使用
func (o SubmissionOutcome) Summary() string {
	if o.FailureCount == 0 {
		return fmt.Sprintf("提交成功 %d 组", o.SuccessCount)
	}
	msgs := make([]string, 0, len(o.Failures))
	for _, f := range o.Failures {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.ClassCode, f.Message))
	}
	return fmt.Sprintf("提交成功 %d 组，失败 %d 组（%s）", o.SuccessCount, o.FailureCount, strings.Join(msgs, "；"))
}
