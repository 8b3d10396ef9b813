// Package jobs provides scheduled background tasks of the order service.
//
// Jobs are cron based (github.com/robfig/cron/v3, seconds field enabled).
//
// # Available Jobs
//
// OverdueMonitorJob scans accepted, prepared and picked up orders every
// thirty seconds. It exports the number of running phases past their
// estimate per phase and warns once for every order phase that goes late.
//
// # Usage
//
//	monitor, err := jobs.NewOverdueMonitorJob(listHandler, services.SystemClock{}, m, logger)
//	if err != nil {
//		return err
//	}
//	manager := jobs.NewJobManager(monitor)
//	if err := manager.StartAll(); err != nil {
//		return err
//	}
//	defer manager.StopAll()
package jobs
