// Package dynamo persists registration records and staged registrations in
// a single DynamoDB table. Uniqueness (email, registration id) and the
// staged-entry state machine are enforced with condition expressions inside
// write transactions, never with application locks.
package dynamo

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	gsi1 = "GSI1"
)

type DB struct {
	dynamoClient *dynamodb.Client
	tableName    string
}

func NewDB(dynamoClient *dynamodb.Client, tableName string) *DB {
	return &DB{
		dynamoClient: dynamoClient,
		tableName:    tableName,
	}
}

func itemNotExistsConditional() expression.ConditionBuilder {
	return expression.Name("PK").AttributeNotExists()
}

func exprMustBuild(builder expression.Builder) expression.Expression {
	expr, err := builder.Build()
	if err != nil {
		panic("failed to build dynamo expression")
	}

	return expr
}

// conditionFailedAt reports whether transact item i was the one whose
// condition check failed. Needed to tell a duplicate email from a duplicate
// registration id from a lost staging race.
func conditionFailedAt(cancelErr *types.TransactionCanceledException, i int) bool {
	if i >= len(cancelErr.CancellationReasons) {
		return false
	}

	code := cancelErr.CancellationReasons[i].Code
	return code != nil && *code == "ConditionalCheckFailed"
}
