// Package schema collects field-level validation failures.
//
// Validation code records every failure it finds in a Collector and returns
// Collector.Err(), an *AggregateError of *ValidationError values, so that callers
// can report all problems of a request in one response:
//
//	var c schema.Collector
//	if c.Required("key", key) {
//	    c.Length("key", key, 3, 20)
//	}
//	if err := c.Err(); err != nil {
//	    for _, fe := range schema.ValidationErrors(err) {
//	        // fe.(*schema.ValidationError).Code, .Key, .Reason
//	    }
//	}
package schema
