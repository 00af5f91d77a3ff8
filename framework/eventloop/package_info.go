// Package eventloop contains a single-threaded cooperative scheduler for running coroutine-style
// test bodies.
//
// A Loop runs callbacks one at a time on whichever goroutine is currently driving it (the caller
// of RunUntilComplete or RunForever). A Task wraps a Coroutine; its body runs on a goroutine of
// its own, but only while the loop has handed control to it, so at any moment exactly one of
// "the loop" or "one task" is executing. A task gives control back at suspension points: Yield,
// Sleep, Await, and Call. Blocking work such as network I/O should go through Call, which runs
// the function on a helper goroutine and resumes the task on the loop when it returns.
//
// The model is deliberately close to a classic asyncio-style loop:
//
//	lp := eventloop.New()
//	task := lp.CreateTask(ctx, func(ctx context.Context) error {
//	    if err := eventloop.Sleep(ctx, time.Millisecond); err != nil {
//	        return err
//	    }
//	    _, err := eventloop.Call(ctx, func() (string, error) { return client.Ping(ctx).Result() })
//	    return err
//	})
//	err := lp.RunUntilComplete(task)
//	_ = lp.Shutdown()
package eventloop
