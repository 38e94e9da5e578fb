package workers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"kabbalah-code-system/store"
	"kabbalah-code-system/utils"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type ledgerSnapshot struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Accounts    []accountView `json:"accounts"`
	TotalPoints int64         `json:"total_points"`
}

type accountView struct {
	TelegramID string `json:"telegram_id"`
	Username   string `json:"username"`
	Level      int    `json:"level"`
	XP         int64  `json:"xp"`
	Points     int64  `json:"points"`
}

// StartLedgerSnapshotWorker periodically exports the full account snapshot to
// R2 as JSON. The worker only reads the ledger; the core engine has no
// background tasks of its own.
func StartLedgerSnapshotWorker(ctx context.Context, ledger store.Ledger, interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	printer := message.NewPrinter(language.English)

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			accs, err := ledger.AllAccounts(ctx)
			if err != nil {
				log.Printf("[Snapshot] ❌ Failed to read ledger: %v", err)
				return
			}

			snap := ledgerSnapshot{
				GeneratedAt: time.Now().UTC(),
				Accounts:    make([]accountView, 0, len(accs)),
			}
			for _, acc := range accs {
				snap.TotalPoints += acc.Points
				snap.Accounts = append(snap.Accounts, accountView{
					TelegramID: acc.TelegramID,
					Username:   acc.Username,
					Level:      acc.Level,
					XP:         acc.XP,
					Points:     acc.Points,
				})
			}

			payload, err := json.Marshal(snap)
			if err != nil {
				log.Printf("[Snapshot] ❌ Failed to marshal snapshot: %v", err)
				return
			}

			key := "snapshots/ledger-" + snap.GeneratedAt.Format("20060102-150405") + ".json"
			url, err := utils.UploadBytesToR2(ctx, key, payload, "application/json")
			if err != nil {
				log.Printf("[Snapshot] ❌ Upload failed: %v", err)
				return
			}

			log.Printf("[Snapshot] ✅ Exported %d account(s), %s total points → %s",
				len(snap.Accounts), printer.Sprintf("%d", snap.TotalPoints), url)
		}),
	)

	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
	}()
}
