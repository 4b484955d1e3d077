// Package engine is a client for the Tractor engine's query and control
// API.
//
// A [Client] holds one session with an engine. The session is opened by
// the first operation that needs one: the client logs in, answering the
// engine's password challenge if the engine requires passwords, and keeps
// the session id it is given. With a session file, the id is saved and
// later clients reuse it for as long as the engine accepts it.
//
// Failed engine transactions are returned as [*TransactionError].
//
// # Example Usage
//
//	client, err := engine.New(engine.WithEngine("tractor-engine", 80), engine.WithUser("alice"))
//	if err != nil {
//		// handle error
//	}
//	defer client.Close(ctx)
//	if err := client.PauseJob(ctx, 1042); err != nil {
//		// handle error
//	}
package engine
