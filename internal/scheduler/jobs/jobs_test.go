package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/eds/backend/internal/brain"
	"github.com/wonny/eds/backend/pkg/logger"
)

type fakeRunner struct {
	today time.Time
	err   error

	postClose []time.Time
	preMarket []time.Time
	intraday  []time.Time
}

func (f *fakeRunner) Today() time.Time { return f.today }

func (f *fakeRunner) RunPostClose(_ context.Context, d time.Time) (*brain.PostCloseResult, error) {
	f.postClose = append(f.postClose, d)
	if f.err != nil {
		return nil, f.err
	}
	return &brain.PostCloseResult{TradeDate: d}, nil
}

func (f *fakeRunner) RunPreMarket(_ context.Context, d time.Time) (*brain.PreMarketResult, error) {
	f.preMarket = append(f.preMarket, d)
	if f.err != nil {
		return nil, f.err
	}
	return &brain.PreMarketResult{TradeDate: d}, nil
}

func (f *fakeRunner) RunIntraday(_ context.Context, d time.Time) (*brain.IntradayResult, error) {
	f.intraday = append(f.intraday, d)
	if f.err != nil {
		return nil, f.err
	}
	return &brain.IntradayResult{TradeDate: d}, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSchedulesParse(t *testing.T) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	tests := []struct {
		name     string
		schedule string
		from     time.Time
		want     time.Time
	}{
		{"post close", PostCloseSchedule, time.Date(2025, 10, 29, 12, 0, 0, 0, la), time.Date(2025, 10, 29, 13, 30, 0, 0, la)},
		{"post close skips weekend", PostCloseSchedule, time.Date(2025, 10, 31, 14, 0, 0, 0, la), time.Date(2025, 11, 3, 13, 30, 0, 0, la)},
		{"pre market", PreMarketSchedule, time.Date(2025, 10, 29, 5, 0, 0, 0, la), time.Date(2025, 10, 29, 6, 0, 0, 0, la)},
		{"intraday half hour", IntradaySchedule, time.Date(2025, 10, 29, 6, 10, 0, 0, la), time.Date(2025, 10, 29, 6, 30, 0, 0, la)},
		{"intraday last slot", IntradaySchedule, time.Date(2025, 10, 29, 12, 10, 0, 0, la), time.Date(2025, 10, 29, 12, 30, 0, 0, la)},
		{"intraday next day", IntradaySchedule, time.Date(2025, 10, 29, 12, 40, 0, 0, la), time.Date(2025, 10, 30, 6, 0, 0, 0, la)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := parser.Parse(tt.schedule)
			require.NoError(t, err)
			got := sched.Next(tt.from)
			assert.True(t, tt.want.Equal(got), "next = %s", got)
		})
	}
}

func TestPostCloseJob(t *testing.T) {
	r := &fakeRunner{today: date(2025, 10, 29)}
	job := NewPostCloseJob(r, logger.Nop())

	assert.Equal(t, "post_close", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []time.Time{date(2025, 10, 29)}, r.postClose)

	r.err = errors.New("provider down")
	assert.EqualError(t, job.Run(context.Background()), "provider down")
}

func TestPreMarketJob_PreviousTradeDate(t *testing.T) {
	tests := []struct {
		name  string
		today time.Time
		want  time.Time
	}{
		{"wednesday", date(2025, 10, 29), date(2025, 10, 28)},
		{"monday uses friday", date(2025, 11, 3), date(2025, 10, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{today: tt.today}
			job := NewPreMarketJob(r, logger.Nop())

			require.NoError(t, job.Run(context.Background()))
			assert.Equal(t, []time.Time{tt.want}, r.preMarket)
		})
	}
}

func TestIntradayJob_Window(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		wantRun bool
	}{
		{"06:00 skipped", time.Date(2025, 10, 29, 6, 0, 0, 0, time.UTC), false},
		{"06:30 runs", time.Date(2025, 10, 29, 6, 30, 0, 0, time.UTC), true},
		{"12:30 runs", time.Date(2025, 10, 29, 12, 30, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{today: date(2025, 10, 29)}
			job := NewIntradayJob(r, func() time.Time { return tt.now }, logger.Nop())

			require.NoError(t, job.Run(context.Background()))
			if tt.wantRun {
				assert.Equal(t, []time.Time{date(2025, 10, 29)}, r.intraday)
			} else {
				assert.Empty(t, r.intraday)
			}
		})
	}
}
