package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/pkg/proto"
)

func TestWriteAndReadRecords(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir)
	require.NoError(t, err)
	defer func() { _ = writer.Close() }()

	turn := proto.NewRecord(proto.RecordTurn, "sess-1")
	turn.SetPayload("domain", "wifi")
	require.NoError(t, writer.WriteRecord(turn))

	resume := proto.NewRecord(proto.RecordResume, "sess-1")
	resume.SetPayload("decision", "approve")
	require.NoError(t, writer.WriteRecord(resume))

	records, err := ReadRecords(writer.CurrentLogFile())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, proto.RecordTurn, records[0].Type)
	assert.Equal(t, proto.RecordResume, records[1].Type)
	decision, ok := records[1].GetPayload("decision")
	require.True(t, ok)
	assert.Equal(t, "approve", decision)
}

func TestCurrentLogFileNamedByDate(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir)
	require.NoError(t, err)
	defer func() { _ = writer.Close() }()

	path := writer.CurrentLogFile()
	assert.Contains(t, path, "events-")
	assert.Contains(t, path, ".jsonl")
}

func TestListLogFiles(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir)
	require.NoError(t, err)
	require.NoError(t, writer.WriteRecord(proto.NewRecord(proto.RecordShutdown, "")))
	require.NoError(t, writer.Close())

	files, err := ListLogFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestReadRecordsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir)
	require.NoError(t, err)
	path := writer.CurrentLogFile()
	require.NoError(t, writer.Close())

	records, err := ReadRecords(path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWriteAfterCloseReopens(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	// rotateIfNeeded reopens the file on the next write.
	require.NoError(t, writer.WriteRecord(proto.NewRecord(proto.RecordTurn, "sess-1")))
	require.NoError(t, writer.Close())

	records, err := ReadRecords(writer.logDir + "/" + "events-" + writer.currentDate + ".jsonl")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
