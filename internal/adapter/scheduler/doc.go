// Package scheduler запускает фоновые задачи бота по cron-расписанию
// (github.com/robfig/cron/v3).
//
// Расписание принимает как пять, так и шесть полей (с секундами), а также
// дескрипторы вида "@hourly" и "@every 5m":
//
//	s := scheduler.New(scheduler.Config{Logger: log})
//	_, err := s.AddJob("@every 1h", scheduler.StatsJob(store, m, log), scheduler.JobOptions{
//		Name:          "stats",
//		Timeout:       30 * time.Second,
//		OverlapPolicy: scheduler.SkipIfRunning,
//		RunOnStart:    true,
//	})
//	err = s.Run(ctx) // блокируется до отмены ctx
//
// Паника в задаче перехватывается и логируется, ошибки задач не
// останавливают планировщик.
package scheduler
