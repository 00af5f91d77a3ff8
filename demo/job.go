package demo

import (
	"fmt"
	"time"

	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Job is one queued call.
type Job struct {
	Name       string
	Args       ldvalue.Value
	EnqueuedAt time.Time
}

// MarshalJob encodes a job as a JSON object with "name", "args", and "enqueued_ms" properties.
func MarshalJob(j Job) []byte {
	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("name").String(j.Name)
	j.Args.WriteToJSONWriter(obj.Name("args"))
	// Float64 rather than Int, which is 32 bits on some platforms; milliseconds fit exactly.
	obj.Name("enqueued_ms").Float64(float64(j.EnqueuedAt.UnixMilli()))
	obj.End()
	return w.Bytes()
}

// UnmarshalJob decodes what MarshalJob produced.
func UnmarshalJob(data []byte) (Job, error) {
	var j Job
	r := jreader.NewReader(data)
	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "name":
			j.Name = r.String()
		case "args":
			j.Args.ReadFromJSONReader(&r)
		case "enqueued_ms":
			j.EnqueuedAt = time.UnixMilli(int64(r.Float64()))
		}
	}
	if err := r.Error(); err != nil {
		return Job{}, fmt.Errorf("malformed job JSON: %w -- data follows: %s", err, string(data))
	}
	if j.Name == "" {
		return Job{}, fmt.Errorf("job has no name -- data follows: %s", string(data))
	}
	return j, nil
}
