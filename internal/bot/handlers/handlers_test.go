package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/olushola/classroom-bot/internal/bot/menu"
	"github.com/olushola/classroom-bot/internal/ctxutil"
	"github.com/olushola/classroom-bot/internal/lesson"
	"github.com/olushola/classroom-bot/internal/models"
	"github.com/olushola/classroom-bot/internal/session"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	answered []tgbotapi.CallbackConfig
	nextID   int
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c)
	b.nextID++
	return tgbotapi.Message{MessageID: b.nextID}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		b.answered = append(b.answered, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = nil
	b.answered = nil
}

// texts returns the text of every new or edited message, in order.
func (b *fakeBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (b *fakeBot) last() string {
	t := b.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

func (b *fakeBot) lastInline() *tgbotapi.InlineKeyboardMarkup {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.sent) - 1; i >= 0; i-- {
		switch m := b.sent[i].(type) {
		case tgbotapi.MessageConfig:
			if mk, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
				return &mk
			}
		case tgbotapi.EditMessageTextConfig:
			if m.ReplyMarkup != nil {
				return m.ReplyMarkup
			}
		}
	}
	return nil
}

func (b *fakeBot) documents() []tgbotapi.DocumentConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, c := range b.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

type fakeJournal struct {
	mu       sync.Mutex
	started  []models.LessonSession
	progress []int
	saveErr  error
	finished []uuid.UUID
	left     []uuid.UUID
	rows     []models.LessonSession
	listErr  error
}

func (j *fakeJournal) StartLesson(_ context.Context, s models.LessonSession) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started = append(j.started, s)
	return nil
}

func (j *fakeJournal) SaveProgress(_ context.Context, _ uuid.UUID, current int, _ []int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = append(j.progress, current)
	return j.saveErr
}

func (j *fakeJournal) FinishLesson(_ context.Context, id uuid.UUID, _ []int64, _ time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished = append(j.finished, id)
	return nil
}

func (j *fakeJournal) LeaveLesson(_ context.Context, id uuid.UUID, _ []int64, _ time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.left = append(j.left, id)
	return nil
}

func (j *fakeJournal) ListLessons(_ context.Context, _, _ time.Time) ([]models.LessonSession, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rows, j.listErr
}

const (
	chatID  = int64(777)
	adminID = int64(1)
)

type harness struct {
	h       *Handlers
	bot     *fakeBot
	journal *fakeJournal
	store   *session.Store
}

func newHarness(capturer session.Capturer) *harness {
	bot := &fakeBot{}
	journal := &fakeJournal{}
	store := session.NewStore(func() *session.Controller {
		return session.NewController(lesson.TemplateProvider{}, capturer)
	})
	h := New(bot, store, journal, nil, time.UTC, func(id int64) bool { return id == adminID })
	return &harness{h: h, bot: bot, journal: journal, store: store}
}

func (hs *harness) text(s string) {
	hs.h.HandleMessage(context.Background(), &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      s,
	})
}

func (hs *harness) press(data string) {
	hs.h.HandleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 50, Chat: &tgbotapi.Chat{ID: chatID}},
	})
}

// fillIntake walks the prompts for Ada, JSS 1, Mathematics, Fractions.
func (hs *harness) fillIntake(t *testing.T) {
	t.Helper()
	hs.text("/start")
	hs.text("Ada")
	hs.press(cbIntakeClass + string(models.JSS1))
	hs.text("Mathematics")
	hs.text("Fractions")
	if !strings.Contains(hs.bot.last(), "Topic: Fractions") {
		t.Fatalf("expected review card, got %q", hs.bot.last())
	}
}

func (hs *harness) teaching(t *testing.T) {
	t.Helper()
	hs.fillIntake(t)
	hs.press(cbIntakeSubmit)
	if !strings.Contains(hs.bot.last(), "Step 1: Introduction to the Concept") {
		t.Fatalf("expected teaching card, got %q", hs.bot.last())
	}
}

func hasButton(mk *tgbotapi.InlineKeyboardMarkup, data string) bool {
	if mk == nil {
		return false
	}
	for _, row := range mk.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil && *b.CallbackData == data {
				return true
			}
		}
	}
	return false
}

func TestIntakeFlow(t *testing.T) {
	hs := newHarness(nil)

	hs.text("/start")
	texts := hs.bot.texts()
	if len(texts) != 2 || !strings.HasPrefix(texts[0], welcomeText) || texts[1] != fieldPrompts["name"] {
		t.Fatalf("start: %q", texts)
	}

	hs.text("Ada")
	mk := hs.bot.lastInline()
	if hs.bot.last() != fieldPrompts["classLevel"] || !hasButton(mk, cbIntakeClass+"waec") {
		t.Fatalf("class prompt missing: %q", hs.bot.last())
	}
	buttons := 0
	for _, row := range mk.InlineKeyboard {
		for _, b := range row {
			if strings.HasPrefix(*b.CallbackData, cbIntakeClass) {
				buttons++
			}
		}
	}
	if buttons != len(models.ClassLevels) {
		t.Fatalf("want %d class buttons, got %d", len(models.ClassLevels), buttons)
	}

	hs.press(cbIntakeClass + "jss-1")
	if hs.bot.last() != fieldPrompts["subject"] {
		t.Fatalf("subject prompt missing: %q", hs.bot.last())
	}
	hs.text("Mathematics")

	// blank topic is refused and asked again
	hs.text("   ")
	texts = hs.bot.texts()
	if !strings.HasPrefix(texts[len(texts)-2], "⚠️") || hs.bot.last() != fieldPrompts["topic"] {
		t.Fatalf("blank topic accepted: %q", texts[len(texts)-2:])
	}

	hs.text("Fractions")
	review := hs.bot.last()
	for _, want := range []string{"Name: Ada", "Class: JSS 1", "Subject: Mathematics", "Language: English"} {
		if !strings.Contains(review, want) {
			t.Errorf("review card lacks %q:\n%s", want, review)
		}
	}
	if !hasButton(hs.bot.lastInline(), cbIntakeSubmit) {
		t.Fatal("complete form must offer the start button")
	}

	hs.press(cbIntakeSubmit)
	card := hs.bot.last()
	for _, want := range []string{
		"Hello Ada! I'm excited to help you learn Mathematics today.",
		"Understanding Fractions",
		"JSS 1 · English",
		"Let me explain Fractions in simple terms that are perfect for JSS 1 level.",
		"1. What does this concept mean in your own words?",
	} {
		if !strings.Contains(card, want) {
			t.Errorf("teaching card lacks %q", want)
		}
	}

	if len(hs.journal.started) != 1 {
		t.Fatalf("journal start calls = %d", len(hs.journal.started))
	}
	s := hs.journal.started[0]
	if s.ChatID != chatID || s.StepCount != 3 || s.Student.Topic != "Fractions" || s.ID == uuid.Nil {
		t.Fatalf("journal row = %+v", s)
	}
}

func TestIntake_EditLanguage(t *testing.T) {
	hs := newHarness(nil)
	hs.fillIntake(t)

	hs.press(cbIntakeEdit + "language")
	if !hasButton(hs.bot.lastInline(), cbIntakeLang+"Yoruba") {
		t.Fatal("language keyboard missing")
	}
	hs.press(cbIntakeLang + "Yoruba")
	if !strings.Contains(hs.bot.last(), "Language: Yorùbá") {
		t.Fatalf("language not updated: %q", hs.bot.last())
	}
}

func TestIntake_EditUnknownField(t *testing.T) {
	hs := newHarness(nil)
	hs.fillIntake(t)
	hs.bot.reset()

	hs.press(cbIntakeEdit + "age")
	if len(hs.bot.sent) != 0 {
		t.Fatalf("unknown field sent %d messages", len(hs.bot.sent))
	}
	if len(hs.bot.answered) != 1 || hs.bot.answered[0].Text != "" {
		t.Fatalf("callback must be answered silently: %+v", hs.bot.answered)
	}
	if f := hs.h.getAwaiting(chatID); f != "" {
		t.Fatalf("awaiting = %q", f)
	}
}

func TestIntake_StaleSubmit(t *testing.T) {
	hs := newHarness(nil)
	hs.text("/start")
	hs.text("Ada")
	hs.bot.reset()

	hs.press(cbIntakeSubmit)
	if len(hs.bot.texts()) != 0 {
		t.Fatalf("incomplete submit sent messages: %q", hs.bot.texts())
	}
	if len(hs.bot.answered) != 1 || hs.bot.answered[0].Text != "" {
		t.Fatalf("callback must be answered silently: %+v", hs.bot.answered)
	}
	if len(hs.journal.started) != 0 {
		t.Fatal("journal touched on incomplete submit")
	}
	_ = hs.store.With(chatID, func(ctl *session.Controller) error {
		if ctl.Teaching() {
			t.Fatal("incomplete submit entered teaching")
		}
		return nil
	})
}

func TestIntake_Cancel(t *testing.T) {
	hs := newHarness(nil)
	hs.text("/start")
	hs.text("Ada")
	hs.text("cancel")
	_ = hs.store.With(chatID, func(ctl *session.Controller) error {
		if ctl.Form().Draft().Name != "" {
			t.Fatal("cancel kept the draft")
		}
		return nil
	})
}

func TestIntake_VoiceAndUpload(t *testing.T) {
	hs := newHarness(nil)
	hs.fillIntake(t)

	hs.press(cbIntakeVoice)
	if !strings.Contains(hs.bot.last(), "Listening") {
		t.Fatalf("voice toggle not shown: %q", hs.bot.last())
	}
	hs.press(cbIntakeVoice)
	if strings.Contains(hs.bot.last(), "Listening") {
		t.Fatal("voice toggle did not switch off")
	}

	before := len(hs.bot.texts())
	hs.press(cbIntakeUpload)
	if len(hs.bot.texts()) != before {
		t.Fatal("upload must not send messages")
	}
}

func TestTeaching_CompleteLesson(t *testing.T) {
	hs := newHarness(nil)
	hs.teaching(t)

	hs.press(cbTeachNext)
	if !strings.Contains(hs.bot.last(), "Step 2: Step-by-Step Breakdown") {
		t.Fatalf("next did not advance: %q", hs.bot.last())
	}
	if !hasButton(hs.bot.lastInline(), cbTeachPrev) {
		t.Fatal("previous button missing after step 1")
	}
	hs.press(cbTeachNext)
	if !hasButton(hs.bot.lastInline(), cbTeachNext) || !strings.Contains(hs.bot.last(), "Step 3: Practice Together") {
		t.Fatalf("not on the last step: %q", hs.bot.last())
	}

	hs.press(cbTeachNext)
	hs.press(cbTeachNext)

	congrats := 0
	for _, s := range hs.bot.texts() {
		if strings.HasPrefix(s, "🎉 Well done, Ada!") {
			congrats++
		}
	}
	if congrats != 1 {
		t.Fatalf("congratulation sent %d times", congrats)
	}
	if len(hs.journal.finished) != 1 || len(hs.journal.progress) != 2 {
		t.Fatalf("journal finished=%d progress=%v", len(hs.journal.finished), hs.journal.progress)
	}
	if !strings.Contains(hs.bot.last(), "Progress (3/3)") {
		t.Fatalf("progress not rendered: %q", hs.bot.last())
	}
}

func TestTeaching_SelectAndPrevious(t *testing.T) {
	hs := newHarness(nil)
	hs.teaching(t)

	hs.press(cbTeachStep + "2")
	if !strings.Contains(hs.bot.last(), "Step 3: Practice Together") {
		t.Fatalf("select did not jump: %q", hs.bot.last())
	}
	hs.press(cbTeachPrev)
	if !strings.Contains(hs.bot.last(), "Step 2: Step-by-Step Breakdown") {
		t.Fatalf("previous did not move back: %q", hs.bot.last())
	}

	before := len(hs.journal.progress)
	hs.press(cbTeachStep + "9")
	if len(hs.journal.progress) != before {
		t.Fatal("out of range select was recorded")
	}
}

func TestTeaching_BackToIntake(t *testing.T) {
	hs := newHarness(nil)
	hs.teaching(t)
	id := hs.journal.started[0].ID

	hs.press(cbTeachBack)
	if len(hs.journal.left) != 1 || hs.journal.left[0] != id {
		t.Fatalf("leave not recorded: %v", hs.journal.left)
	}
	if hs.bot.last() != fieldPrompts["name"] {
		t.Fatalf("back should restart intake, got %q", hs.bot.last())
	}

	// the old card no longer drives a lesson
	before := len(hs.journal.progress)
	hs.press(cbTeachNext)
	if len(hs.journal.progress) != before {
		t.Fatal("stale teaching card changed progress")
	}

	hs.fillIntake(t)
	hs.press(cbIntakeSubmit)
	if len(hs.journal.started) != 2 || hs.journal.started[1].ID == id {
		t.Fatal("re-entry must start a new session")
	}
	if !strings.Contains(hs.bot.last(), "Progress (0/3)") {
		t.Fatalf("re-entry kept old progress: %q", hs.bot.last())
	}
}

func TestTeaching_ScreenShare(t *testing.T) {
	t.Run("refused", func(t *testing.T) {
		hs := newHarness(session.GatedCapturer{Enabled: false})
		hs.teaching(t)
		hs.press(cbTeachShare)
		if strings.Contains(hs.bot.last(), "Screen sharing is on") {
			t.Fatal("refused share turned sharing on")
		}
	})
	t.Run("granted", func(t *testing.T) {
		hs := newHarness(session.CapturerFunc(func(context.Context) error { return nil }))
		hs.teaching(t)
		hs.press(cbTeachShare)
		if !strings.Contains(hs.bot.last(), "Screen sharing is on") || !hasButton(hs.bot.lastInline(), cbTeachShare) {
			t.Fatalf("share not shown: %q", hs.bot.last())
		}
		hs.press(cbTeachShare)
		if strings.Contains(hs.bot.last(), "Screen sharing is on") {
			t.Fatal("second press must stop sharing")
		}
	})
}

func TestExportSessions(t *testing.T) {
	t.Run("admin", func(t *testing.T) {
		hs := newHarness(nil)
		hs.journal.rows = []models.LessonSession{{
			ID:          uuid.New(),
			Student:     models.StudentRecord{Name: "Ada", ClassLevel: models.JSS1, Subject: "Mathematics", Topic: "Fractions", Language: models.English},
			LessonTitle: "Understanding Fractions",
			StepCount:   3,
			Status:      models.LessonActive,
			StartedAt:   time.Now(),
		}}
		hs.h.ExportSessions(context.Background(), adminID)
		docs := hs.bot.documents()
		if len(docs) != 1 {
			t.Fatalf("want 1 document, got %d", len(docs))
		}
		fb, ok := docs[0].File.(tgbotapi.FileBytes)
		if !ok || !strings.HasSuffix(fb.Name, ".xlsx") || len(fb.Bytes) == 0 {
			t.Fatalf("bad document: %#v", docs[0].File)
		}
	})
	t.Run("not_admin", func(t *testing.T) {
		hs := newHarness(nil)
		hs.h.ExportSessions(context.Background(), chatID)
		if len(hs.bot.documents()) != 0 || len(hs.bot.texts()) != 0 {
			t.Fatal("non-admin got an export")
		}
	})
	t.Run("journal_error", func(t *testing.T) {
		hs := newHarness(nil)
		hs.journal.listErr = errors.New("db down")
		hs.h.ExportSessions(context.Background(), adminID)
		if len(hs.bot.documents()) != 0 || !strings.HasPrefix(hs.bot.last(), "⚠️") {
			t.Fatalf("error not reported: %q", hs.bot.last())
		}
	})
}

func TestHandleMessage_Commands(t *testing.T) {
	hs := newHarness(nil)
	hs.text("/start")

	hs.text("/export")
	if hs.bot.last() != unknownCommandText {
		t.Fatalf("non-admin /export: %q", hs.bot.last())
	}
	_ = hs.store.With(chatID, func(ctl *session.Controller) error {
		if ctl.Form().Draft().Name != "" {
			t.Fatal("a command was taken as the student's name")
		}
		return nil
	})

	// the admin menu text from a student is not a name either
	hs.text(menu.ExportSessions)
	if hs.bot.last() != unknownCommandText {
		t.Fatalf("non-admin export button: %q", hs.bot.last())
	}
	_ = hs.store.With(chatID, func(ctl *session.Controller) error {
		if ctl.Form().Draft().Name != "" {
			t.Fatalf("menu text stored as name %q", ctl.Form().Draft().Name)
		}
		return nil
	})

	hs.h.HandleMessage(context.Background(), &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Document: &tgbotapi.Document{FileName: "notes.pdf"},
	})
	if hs.bot.last() != uploadStubText {
		t.Fatalf("upload reply = %q", hs.bot.last())
	}
}

func TestJournalErrorCarriesChat(t *testing.T) {
	hs := newHarness(nil)
	core, logs := observer.New(zap.ErrorLevel)
	hs.h.log = zap.New(core)
	hs.teaching(t)
	hs.journal.saveErr = errors.New("db down")

	// the dispatcher scopes the context before handing the update over
	ctx := ctxutil.WithOp(ctxutil.WithChatID(context.Background(), chatID), "callback")
	hs.h.HandleCallback(ctx, &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    cbTeachNext,
		Message: &tgbotapi.Message{MessageID: 50, Chat: &tgbotapi.Chat{ID: chatID}},
	})

	entries := logs.FilterMessage("journal write failed").All()
	if len(entries) != 1 {
		t.Fatalf("want 1 journal error, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["chat_id"] != chatID || fields["op"] != cbTeachNext || fields["step"] != "journal.progress" {
		t.Fatalf("fields = %v", fields)
	}
}
