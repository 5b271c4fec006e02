package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dynamoTestItem struct {
	PK     string
	SK     string
	GSI1PK string
	GSI1SK string
	Time   time.Time
}

func TestCursorEncodeAndDecode(t *testing.T) {
	item := dynamoTestItem{
		PK:     "ATTENDEE#jane.doe@example.com",
		SK:     "REG",
		GSI1PK: "REG",
		GSI1SK: "2026-01-02T15:04:05.000000000Z#abc",
		Time:   time.Now(),
	}

	key, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)

	cursor, err := lastEvalKeyToCursor(key)
	require.NoError(t, err)

	keyBack, err := cursorToLastEval(cursor)
	require.NoError(t, err)

	require.Equal(t, key, keyBack)
}

func TestCursorToLastEvalRejectsGarbage(t *testing.T) {
	_, err := cursorToLastEval("not base64 at all!!!")
	assert.Error(t, err)
}
