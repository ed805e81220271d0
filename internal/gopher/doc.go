// Package gopher implements the Gopher transport: one TCP round trip per fetch.
//
// A fetch dials the server, writes the selector (plus TAB and the search
// terms for type 7 items) terminated by CRLF and reads the response in fixed
// size chunks until the server closes the connection. Nothing else frames the
// response, in particular the "." line some servers send is left to the menu
// decoder. Each completed read is reported through Request.OnProgress.
//
// Fetches run on their own goroutine:
//
//	f := client.FetchAsync(ctx, gopher.Request{Address: addr})
//	...
//	f.Cancel() // closes the socket; the fetch ends with KindUserCancelled
//	result := f.Wait()
//
// Failures are reported as *FetchError values whose Kind is one of the
// ErrorKind constants. errors.Is matches them against the per-kind sentinels.
package gopher
