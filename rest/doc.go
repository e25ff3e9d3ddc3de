// Package rest executes typed REST calls and decodes their responses.
//
// This package provides:
//   - A Client with functional options over any Transport (*http.Client by default)
//   - A Request descriptor with URI validation, custom verbs and header sets
//   - Content classification by media type and charset
//   - JSON decoding through one of two engines chosen per model type
//   - XML decoding with DTD processing refused by default
//   - Results that carry status, elapsed time, raw bytes and decoded data
//
// Basic Usage:
//
//	client := rest.NewClient(
//	    rest.WithLogger(logger),
//	    rest.WithTiming(true),
//	)
//	defer client.Close()
//
//	type origin struct {
//	    Origin string `json:"origin"`
//	}
//
//	res, err := rest.Get[origin](ctx, client, "https://httpbin.org/ip")
//	if err != nil {
//	    // the request could not be built, or a 2xx body did not decode
//	    log.Fatal(err)
//	}
//	if !res.IsSuccessful() {
//	    log.Printf("status %d, err %v", res.StatusCode(), res.Err())
//	}
//	fmt.Println(res.Data().Origin)
//
// Custom Verbs:
//
//	req, err := rest.NewRequest(rest.MethodCustom, "https://example.com/items",
//	    rest.WithCustomMethod("PURGE"),
//	    rest.WithAuthentication(rest.AuthenticationHeader{Scheme: "Bearer", Parameter: token}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := client.Execute(ctx, req)
//
// Error Handling:
//
// Transport failures (refused connections, timeouts, cancellation) never
// surface as the returned error; they are recorded on the result and
// reported by Result.Err. Decode failures are returned as *DecodeError only
// for 2xx responses. For other statuses they are logged and the result has
// no data.
//
// Thread Safety:
//
// Client is safe for concurrent use as long as its Transport is. A Request
// must not be modified while it is being executed.
package rest
