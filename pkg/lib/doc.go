// Package lib provides a Go SDK for running a fieldwork worker device
// programmatically.
//
// It exposes the same workflow as the fieldwork CLI without shelling out to
// the binary: signing in, browsing the assigned jobs, moving through the job
// workflow stages and replaying the actions queued while offline. It is useful
// for scripting, kiosk integrations and end to end tests.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if _, err := client.SignIn(ctx, "tech@example.com", "s3cret"); err != nil {
//	    log.Fatal(err)
//	}
//
//	jobs, _ := client.ListJobs(ctx, &lib.ListJobsOpts{View: lib.JobViewCurrent})
//	d, _ := client.RequestStage(ctx, jobs[0].ID, lib.StageService)
//	if !d.Allowed {
//	    fmt.Println(d.Title, d.Message)
//	}
//
// # Offline Mode
//
// When the backend is unreachable, or [Config].Offline is set, reads are served
// from the jobs cached on the device and writes are applied locally and queued.
// [Client.PendingActions] lists the queue and [Client.Sync] replays it in order,
// stopping on the first failure.
//
// # Error Handling
//
// Errors can be checked with [errors.Is] against the sentinels:
//
//   - [ErrNotFound]: Resource does not exist.
//   - [ErrNotValid]: Invalid input.
//   - [ErrNotAllowed]: The workflow does not allow the operation yet.
//   - [ErrOffline]: The operation needs the backend.
//   - [ErrNoSession]: No worker is signed in on the device.
//   - [ErrUnauthenticated]: Wrong email or password.
//
// # Testing
//
// Use [BackendMemory] and a temporary data dir to write tests without a real
// backend, [Client.LoadFixtures] seeds it:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    DataDir: t.TempDir(),
//	    Backend: lib.BackendMemory,
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. The device
// storage uses SQLite and the offline queue serializes its replays.
package lib
