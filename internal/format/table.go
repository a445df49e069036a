package format

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/rleer/rmq-cli-sub002/internal/pipeline"
)

// Table renders routing metadata, properties and headers as a two-column
// table, followed by the body.
type Table struct{}

// Format implements pipeline.Formatter.
func (Table) Format(m pipeline.Message) ([]byte, error) {
	var buf bytes.Buffer

	tw := tablewriter.NewWriter(&buf)
	tw.SetHeader([]string{"Field", "Value"})
	tw.SetAutoWrapText(false)

	tw.Append([]string{"exchange", m.Exchange})
	tw.Append([]string{"routing key", m.RoutingKey})
	tw.Append([]string{"queue", m.Queue})
	tw.Append([]string{"delivery tag", strconv.FormatUint(m.DeliveryTag, 10)})
	tw.Append([]string{"redelivered", strconv.FormatBool(m.Redelivered)})
	tw.Append([]string{"size", strconv.Itoa(m.Size)})

	appendProperties(tw, m.Properties)
	appendHeaders(tw, m)

	tw.Render()
	buf.WriteByte('\n')
	buf.Write(m.Body)

	return buf.Bytes(), nil
}

func appendProperties(tw *tablewriter.Table, p pipeline.Properties) {
	add := func(name, value string) {
		if value != "" {
			tw.Append([]string{name, value})
		}
	}

	add("content type", p.ContentType)
	add("content encoding", p.ContentEncoding)
	if p.DeliveryMode != 0 {
		add("delivery mode", strconv.Itoa(int(p.DeliveryMode)))
	}
	if p.Priority != 0 {
		add("priority", strconv.Itoa(int(p.Priority)))
	}
	add("correlation id", p.CorrelationID)
	add("reply to", p.ReplyTo)
	add("expiration", p.Expiration)
	add("message id", p.MessageID)
	if !p.Timestamp.IsZero() {
		add("timestamp", p.Timestamp.Format(time.RFC3339))
	}
	add("type", p.Type)
	add("user id", p.UserID)
	add("app id", p.AppID)
}

func appendHeaders(tw *tablewriter.Table, m pipeline.Message) {
	headers := sanitizeTable(m.Headers)

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		tw.Append([]string{"header " + k, fmt.Sprint(headers[k])})
	}
}
