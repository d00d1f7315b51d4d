// Package gateway is the single entry point through which the cybered client
// talks to the LMS API.
//
// # Overview
//
// A [Gateway] owns one response cache ([cache.Table]) and issues every call
// through the same pipeline:
//
//  1. Cache check: GET calls with caching requested are answered from a
//     fresh cache slot without touching the network.
//  2. Network: the request is sent under the retry policy, each attempt
//     bounded by its own deadline (see [httputil.Retry] and
//     [httputil.WithTimeout]).
//  3. Classify: non-2xx responses become an [errors.HTTPError] carrying the
//     status and the server's detail message; 204 yields a nil result; any
//     other 2xx yields the JSON body.
//  4. Cache update: a successful cached GET stores its result; a successful
//     POST, PUT, PATCH or DELETE invalidates the slots the endpoint affects.
//
// Failed calls never touch the cache.
//
// # Usage
//
//	gw, err := gateway.New(gateway.Options{
//	    BaseURL: "http://127.0.0.1:8000/api/v1",
//	    Tokens:  store,
//	})
//	if err != nil {
//	    return err
//	}
//
//	var courses []Course
//	if err := gw.Get(ctx, "/courses/", &courses); err != nil {
//	    return err
//	}
//
// # Headers
//
// Every request carries Content-Type and Accept set to application/json, a
// User-Agent, and an X-Request-ID that stays the same across the retries of
// one call. When the [TokenSource] yields a token, an Authorization bearer
// header is added.
package gateway
