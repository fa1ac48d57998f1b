// Package monkey provides client-side fault injection for HTTP traffic.
//
// An Engine sits between an http.Client and its real transport and, for a
// small fraction of outgoing requests, corrupts the exchange so that the
// calling application's error handling gets exercised. It is a testing tool.
//
// # Supported Fault Types
//
//   - Code: replaces the response status code (404 unless told otherwise)
//   - Latency: holds the response back for a fixed duration
//   - Failure: fails the round trip with a synthetic transport error
//   - Custom: any Rule built with NewRule and arbitrary transforms
//
// # Selection
//
// For every request the Engine collects the Rules whose method and URL match.
// If one of them is mandatory, the first one registered fires. Otherwise a
// probability gate decides whether anything fires at all (1 in 10 by default,
// 1 in 2 in aggressive mode, always in test mode), and a Rule is picked at
// random in proportion to its weight.
//
// # Usage with http.Client
//
//	engine := monkey.New(monkey.WithLogger(logger))
//	engine.RegisterCodeFault(503)
//	engine.RegisterLatencyFault(250 * time.Millisecond)
//	engine.RegisterFailureFault()
//
//	client := monkey.NewClient(engine, http.DefaultClient)
//	resp, err := client.Get("https://api.example.com/users")
//
// Use NoOp in builds where fault injection must be compiled in but never act.
//
// # Custom Rules
//
//	rule, err := monkey.NewRule(monkey.RuleSpec{
//	    Description: "Slow down user creation",
//	    Method:      monkey.MethodPost,
//	    URL:         "https://api.example.com/users",
//	    Weight:      3,
//	    Response:    monkey.Delay(2*time.Second, false),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := engine.Register(rule); err != nil {
//	    log.Fatal(err)
//	}
package monkey
