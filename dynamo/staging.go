package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/summitworks/conference-registration/registration"
	"github.com/summitworks/conference-registration/slices"
)

var _ registration.StagingStore = &DB{}

type registrationPayloadDynamo struct {
	Email          string
	PasswordHash   string
	Profile        registration.Profile
	Selection      registration.Selection
	Method         registration.PaymentMethod
	PaymentType    registration.PaymentType
	AmountMinor    int64
	AmountCurrency string
}

type stagedRegistrationDynamo struct {
	PK string
	SK string

	// GSI1 keys are only present while the entry is STAGED; the terminal
	// transitions remove them so the sweeper's scan never sees settled
	// entries.
	GSI1PK string `dynamodbav:",omitempty"`
	GSI1SK string `dynamodbav:",omitempty"`

	StagingKey     string
	Payload        registrationPayloadDynamo
	RegistrationID string
	Status         registration.StagingStatus
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

const (
	stagedEntityName   = "STAGE"
	stagedListGSIKey   = "STAGE#STAGED"
	stagedGuardSKValue = "STAGE"
)

func stagedPK(stagingKey string) string {
	return fmt.Sprintf("%s#%s", stagedEntityName, stagingKey)
}

func stagedSK() string {
	return stagedGuardSKValue
}

func payloadToDynamo(payload registration.RegistrationPayload) registrationPayloadDynamo {
	dyn := registrationPayloadDynamo{
		Email:        payload.Email,
		PasswordHash: payload.PasswordHash,
		Profile:      payload.Profile,
		Selection:    payload.Selection,
		Method:       payload.Method,
		PaymentType:  payload.PaymentType,
	}

	if payload.Amount != nil {
		dyn.AmountMinor = payload.Amount.Amount()
		dyn.AmountCurrency = payload.Amount.Currency().Code
	}

	return dyn
}

func dynamoToPayload(dyn registrationPayloadDynamo) registration.RegistrationPayload {
	var amount *money.Money
	if dyn.AmountCurrency != "" {
		amount = money.New(dyn.AmountMinor, dyn.AmountCurrency)
	}

	return registration.RegistrationPayload{
		Email:        dyn.Email,
		PasswordHash: dyn.PasswordHash,
		Profile:      dyn.Profile,
		Selection:    dyn.Selection,
		Method:       dyn.Method,
		PaymentType:  dyn.PaymentType,
		Amount:       amount,
	}
}

func stagedToDynamo(staged registration.StagedRegistration) stagedRegistrationDynamo {
	dyn := stagedRegistrationDynamo{
		PK:             stagedPK(staged.StagingKey),
		SK:             stagedSK(),
		StagingKey:     staged.StagingKey,
		Payload:        payloadToDynamo(staged.Payload),
		RegistrationID: staged.RegistrationID,
		Status:         staged.Status,
		CreatedAt:      staged.CreatedAt,
		ExpiresAt:      staged.ExpiresAt,
	}

	if staged.Status == registration.STAGING_STATUS_STAGED {
		dyn.GSI1PK = stagedListGSIKey
		dyn.GSI1SK = staged.ExpiresAt.UTC().Format(sortableTimeFormat)
	}

	return dyn
}

func dynamoToStaged(dyn stagedRegistrationDynamo) registration.StagedRegistration {
	return registration.StagedRegistration{
		StagingKey:     dyn.StagingKey,
		Payload:        dynamoToPayload(dyn.Payload),
		RegistrationID: dyn.RegistrationID,
		Status:         dyn.Status,
		CreatedAt:      dyn.CreatedAt,
		ExpiresAt:      dyn.ExpiresAt,
	}
}

// Stage writes the staged entry and reserves its registration id in one
// transaction. A staging key can only ever be written once; retrying a
// submission creates a new gateway order and therefore a new key.
func (d *DB) Stage(ctx context.Context, staged registration.StagedRegistration) error {
	stagedItem, err := attributevalue.MarshalMap(stagedToDynamo(staged))
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate staged registration to dynamo model", err)
	}
	stagedExpr := exprMustBuild(expression.NewBuilder().
		WithCondition(itemNotExistsConditional()))

	guardItem, err := attributevalue.MarshalMap(registrationIDDynamo{
		PK:             registrationIDPK(staged.RegistrationID),
		SK:             registrationIDSK(),
		RegistrationID: staged.RegistrationID,
		Email:          staged.Payload.Email,
		Status:         regIDStatusReserved,
	})
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate registration id guard to dynamo model", err)
	}
	guardExpr := exprMustBuild(expression.NewBuilder().
		WithCondition(itemNotExistsConditional()))

	_, err = d.dynamoClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:                 aws.String(d.tableName),
					Item:                      stagedItem,
					ConditionExpression:       stagedExpr.Condition(),
					ExpressionAttributeNames:  stagedExpr.Names(),
					ExpressionAttributeValues: stagedExpr.Values(),
				},
			},
			{
				Put: &types.Put{
					TableName:                 aws.String(d.tableName),
					Item:                      guardItem,
					ConditionExpression:       guardExpr.Condition(),
					ExpressionAttributeNames:  guardExpr.Names(),
					ExpressionAttributeValues: guardExpr.Values(),
				},
			},
		},
	})
	if err != nil {
		var cancelErr *types.TransactionCanceledException
		if errors.As(err, &cancelErr) {
			switch {
			case conditionFailedAt(cancelErr, 0):
				return registration.NewStagingConflictError(fmt.Sprintf("Staged registration already exists for key %q", staged.StagingKey), err)
			case conditionFailedAt(cancelErr, 1):
				return registration.NewRegistrationIDConflictError(fmt.Sprintf("Registration id %q is already taken", staged.RegistrationID), err)
			}
			return registration.NewFailedToWriteError("Staging transaction was cancelled", err)
		}
		return registration.NewFailedToWriteError("Failed TransactWriteItems call", err)
	}

	return nil
}

func (d *DB) GetStaged(ctx context.Context, stagingKey string) (registration.StagedRegistration, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: stagedPK(stagingKey)},
			"SK": &types.AttributeValueMemberS{Value: stagedSK()},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return registration.StagedRegistration{}, registration.NewTimeoutError("GetStaged timed out")
		}
		return registration.StagedRegistration{}, registration.NewFailedToFetchError(fmt.Sprintf("Failed to fetch staged registration for key %q", stagingKey), err)
	}

	if len(resp.Item) == 0 {
		return registration.StagedRegistration{}, registration.NewStagingNotFoundError(fmt.Sprintf("No staged registration for key %q", stagingKey), nil)
	}

	var dynStaged stagedRegistrationDynamo
	err = attributevalue.UnmarshalMap(resp.Item, &dynStaged)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal staged registration from dynamo: %s", err))
	}

	return dynamoToStaged(dynStaged), nil
}

// MarkStagingExpired transitions a staged entry to expired and deletes its
// registration id reservation, returning the id to the unused pool. The
// transition is conditional on the entry still being STAGED, so it cannot
// race a concurrent commit of the same key.
func (d *DB) MarkStagingExpired(ctx context.Context, stagingKey string, registrationID string) error {
	stagedExpr := exprMustBuild(expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists().
			And(expression.Name("Status").Equal(expression.Value(registration.STAGING_STATUS_STAGED)))).
		WithUpdate(expression.Set(expression.Name("Status"), expression.Value(registration.STAGING_STATUS_EXPIRED)).
			Remove(expression.Name("GSI1PK")).
			Remove(expression.Name("GSI1SK"))))

	guardExpr := exprMustBuild(expression.NewBuilder().
		WithCondition(expression.Name("Status").Equal(expression.Value(regIDStatusReserved))))

	_, err := d.dynamoClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName: aws.String(d.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: stagedPK(stagingKey)},
						"SK": &types.AttributeValueMemberS{Value: stagedSK()},
					},
					ConditionExpression:       stagedExpr.Condition(),
					ExpressionAttributeNames:  stagedExpr.Names(),
					ExpressionAttributeValues: stagedExpr.Values(),
					UpdateExpression:          stagedExpr.Update(),
				},
			},
			{
				Delete: &types.Delete{
					TableName: aws.String(d.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: registrationIDPK(registrationID)},
						"SK": &types.AttributeValueMemberS{Value: registrationIDSK()},
					},
					ConditionExpression:       guardExpr.Condition(),
					ExpressionAttributeNames:  guardExpr.Names(),
					ExpressionAttributeValues: guardExpr.Values(),
				},
			},
		},
	})
	if err != nil {
		var cancelErr *types.TransactionCanceledException
		if errors.As(err, &cancelErr) {
			return registration.NewStagingConflictError(fmt.Sprintf("Staged registration %q is no longer in the staged state", stagingKey), err)
		}
		return registration.NewFailedToWriteError("Failed TransactWriteItems call", err)
	}

	return nil
}

// ListExpiredStaged returns entries still STAGED whose expiry is in the
// past, oldest first. The scan is bounded; whatever does not fit in one
// batch is picked up on the sweeper's next pass.
func (d *DB) ListExpiredStaged(ctx context.Context, olderThan time.Time, limit int32) ([]registration.StagedRegistration, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(stagedListGSIKey)).
		And(expression.Key("GSI1SK").LessThan(expression.Value(olderThan.UTC().Format(sortableTimeFormat))))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build dynamo key expression: %s", err))
	}

	result, err := d.dynamoClient.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		IndexName:                 aws.String(gsi1),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(limit),
	})
	if err != nil {
		return nil, registration.NewFailedToFetchError("Failed to fetch expired staged registrations from dynamo", err)
	}

	var dynamoItems []stagedRegistrationDynamo
	err = attributevalue.UnmarshalListOfMaps(result.Items, &dynamoItems)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal dynamo staged registrations: %s", err))
	}

	return slices.Map(dynamoItems, func(v stagedRegistrationDynamo) registration.StagedRegistration {
		return dynamoToStaged(v)
	}), nil
}
