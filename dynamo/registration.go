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
	"github.com/google/uuid"

	"github.com/summitworks/conference-registration/registration"
	"github.com/summitworks/conference-registration/slices"
)

var _ registration.Repository = &DB{}
var _ registration.IDChecker = &DB{}

// sortableTimeFormat is fixed width so listing order holds lexically.
const sortableTimeFormat = "2006-01-02T15:04:05.000000000Z"

type registrationRecordDynamo struct {
	PK     string
	SK     string
	GSI1PK string
	GSI1SK string

	ID             uuid.UUID
	Email          string
	PasswordHash   string
	Profile        registration.Profile
	Selection      registration.Selection
	RegistrationID string
	Status         registration.Status
	PaymentType    registration.PaymentType
	PaymentMethod  registration.PaymentMethod
	PaymentStatus  registration.PaymentStatus
	AmountMinor    int64
	AmountCurrency string
	CreatedAt      time.Time
}

// registrationIDDynamo is the guard item that makes registration ids
// globally unique: written RESERVED when a registration is staged, flipped
// COMMITTED inside the commit transaction, deleted when a staged entry
// expires. The allocator's existence check reads these.
type registrationIDDynamo struct {
	PK string
	SK string

	RegistrationID string
	Email          string
	Status         string
}

const (
	attendeeEntityName       = "ATTENDEE"
	registrationIDEntityName = "REGID"
	registrationListGSIKey   = "REG"

	regIDStatusReserved  = "RESERVED"
	regIDStatusCommitted = "COMMITTED"
)

func attendeePK(email string) string {
	return fmt.Sprintf("%s#%s", attendeeEntityName, email)
}

func attendeeSK() string {
	return "REG"
}

func registrationIDPK(registrationID string) string {
	return fmt.Sprintf("%s#%s", registrationIDEntityName, registrationID)
}

func registrationIDSK() string {
	return registrationIDEntityName
}

func recordToDynamo(record registration.RegistrationRecord) registrationRecordDynamo {
	dyn := registrationRecordDynamo{
		PK:             attendeePK(record.Email),
		SK:             attendeeSK(),
		GSI1PK:         registrationListGSIKey,
		GSI1SK:         fmt.Sprintf("%s#%s", record.CreatedAt.UTC().Format(sortableTimeFormat), record.ID),
		ID:             record.ID,
		Email:          record.Email,
		PasswordHash:   record.PasswordHash,
		Profile:        record.Profile,
		Selection:      record.Selection,
		RegistrationID: record.RegistrationID,
		Status:         record.Status,
		PaymentType:    record.PaymentType,
		PaymentMethod:  record.Payment.Method,
		PaymentStatus:  record.Payment.Status,
		CreatedAt:      record.CreatedAt,
	}

	if record.Payment.Amount != nil {
		dyn.AmountMinor = record.Payment.Amount.Amount()
		dyn.AmountCurrency = record.Payment.Amount.Currency().Code
	}

	return dyn
}

func dynamoToRecord(dyn registrationRecordDynamo) registration.RegistrationRecord {
	var amount *money.Money
	if dyn.AmountCurrency != "" {
		amount = money.New(dyn.AmountMinor, dyn.AmountCurrency)
	}

	return registration.RegistrationRecord{
		ID:             dyn.ID,
		Email:          dyn.Email,
		PasswordHash:   dyn.PasswordHash,
		Profile:        dyn.Profile,
		Selection:      dyn.Selection,
		RegistrationID: dyn.RegistrationID,
		Status:         dyn.Status,
		PaymentType:    dyn.PaymentType,
		Payment: registration.PaymentDetails{
			Method: dyn.PaymentMethod,
			Status: dyn.PaymentStatus,
			Amount: amount,
		},
		CreatedAt: dyn.CreatedAt,
	}
}

// CreateRegistration writes the attendee record, claims its registration id
// guard item, and (when stagingKey is set) transitions the staged entry to
// committed, all in one transaction. Each piece carries its own condition,
// so the transaction fails closed on a duplicate email, a stolen
// registration id, or a staged entry that already left the STAGED state.
func (d *DB) CreateRegistration(ctx context.Context, record registration.RegistrationRecord, stagingKey *string) error {
	dynRecord := recordToDynamo(record)

	recordItem, err := attributevalue.MarshalMap(dynRecord)
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate registration record to dynamo model", err)
	}
	recordExpr := exprMustBuild(expression.NewBuilder().
		WithCondition(itemNotExistsConditional()))

	guardItem, err := attributevalue.MarshalMap(registrationIDDynamo{
		PK:             registrationIDPK(record.RegistrationID),
		SK:             registrationIDSK(),
		RegistrationID: record.RegistrationID,
		Email:          record.Email,
		Status:         regIDStatusCommitted,
	})
	if err != nil {
		return registration.NewFailedToTranslateToDBModelError("Failed to translate registration id guard to dynamo model", err)
	}
	// The guard may not exist yet (direct commit) or may be this
	// registration's own reservation (gateway path). Anything else means
	// the id now belongs to someone else.
	guardExpr := exprMustBuild(expression.NewBuilder().
		WithCondition(itemNotExistsConditional().
			Or(expression.Name("Status").Equal(expression.Value(regIDStatusReserved)).
				And(expression.Name("Email").Equal(expression.Value(record.Email))))))

	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:                 aws.String(d.tableName),
				Item:                      recordItem,
				ConditionExpression:       recordExpr.Condition(),
				ExpressionAttributeNames:  recordExpr.Names(),
				ExpressionAttributeValues: recordExpr.Values(),
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
	}

	if stagingKey != nil {
		stagedExpr := exprMustBuild(expression.NewBuilder().
			WithCondition(expression.Name("PK").AttributeExists().
				And(expression.Name("Status").Equal(expression.Value(registration.STAGING_STATUS_STAGED)))).
			WithUpdate(expression.Set(expression.Name("Status"), expression.Value(registration.STAGING_STATUS_COMMITTED)).
				Remove(expression.Name("GSI1PK")).
				Remove(expression.Name("GSI1SK"))))

		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName: aws.String(d.tableName),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: stagedPK(*stagingKey)},
					"SK": &types.AttributeValueMemberS{Value: stagedSK()},
				},
				ConditionExpression:       stagedExpr.Condition(),
				ExpressionAttributeNames:  stagedExpr.Names(),
				ExpressionAttributeValues: stagedExpr.Values(),
				UpdateExpression:          stagedExpr.Update(),
			},
		})
	}

	_, err = d.dynamoClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var cancelErr *types.TransactionCanceledException
		if errors.As(err, &cancelErr) {
			switch {
			case conditionFailedAt(cancelErr, 0):
				return registration.NewEmailAlreadyRegisteredError(fmt.Sprintf("A registration already exists for email %q", record.Email), err)
			case conditionFailedAt(cancelErr, 1):
				return registration.NewRegistrationIDConflictError(fmt.Sprintf("Registration id %q is already taken", record.RegistrationID), err)
			case conditionFailedAt(cancelErr, 2):
				return registration.NewStagingConflictError(fmt.Sprintf("Staged registration %q is no longer in the staged state", *stagingKey), err)
			}
			return registration.NewFailedToWriteError("Commit transaction was cancelled", err)
		}
		return registration.NewFailedToWriteError("Failed TransactWriteItems call", err)
	}

	return nil
}

func (d *DB) GetRegistrationByEmail(ctx context.Context, email string) (registration.RegistrationRecord, error) {
	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: attendeePK(email)},
			"SK": &types.AttributeValueMemberS{Value: attendeeSK()},
		},
	})
	if err != nil {
		return registration.RegistrationRecord{}, registration.NewFailedToFetchError(fmt.Sprintf("Failed to fetch registration for email %q", email), err)
	}

	if len(resp.Item) == 0 {
		return registration.RegistrationRecord{}, registration.NewRegistrationDoesNotExistError(fmt.Sprintf("No registration found for email %q", email), nil)
	}

	var dynRecord registrationRecordDynamo
	err = attributevalue.UnmarshalMap(resp.Item, &dynRecord)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal registration record from dynamo: %s", err))
	}

	return dynamoToRecord(dynRecord), nil
}

// RegistrationIDExists is the allocator's collision pre-check. It sees both
// committed ids and staged reservations because both hold a guard item.
func (d *DB) RegistrationIDExists(ctx context.Context, registrationID string) (bool, error) {
	resp, err := d.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: registrationIDPK(registrationID)},
			"SK": &types.AttributeValueMemberS{Value: registrationIDSK()},
		},
	})
	if err != nil {
		return false, registration.NewFailedToFetchError(fmt.Sprintf("Failed to check registration id %q", registrationID), err)
	}

	return len(resp.Item) > 0, nil
}

func (d *DB) GetAllRegistrations(ctx context.Context, limit int32, cursor *string) (registration.GetAllRegistrationsResponse, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(registrationListGSIKey))

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build dynamo key expression: %s", err))
	}

	var startKey map[string]types.AttributeValue
	if cursor != nil {
		startKey, err = cursorToLastEval(*cursor)
		if err != nil {
			return registration.GetAllRegistrationsResponse{}, registration.NewInvalidCursorError("Invalid cursor", err)
		}
	}

	result, err := d.dynamoClient.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		IndexName:                 aws.String(gsi1),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		// Fetch 1 more than limit to check if there is another page or not
		Limit:             aws.Int32(limit + 1),
		ExclusiveStartKey: startKey,
	})
	if err != nil {
		return registration.GetAllRegistrationsResponse{}, registration.NewFailedToFetchError("Failed to fetch registrations from dynamo", err)
	}

	var dynamoItems []registrationRecordDynamo
	err = attributevalue.UnmarshalListOfMaps(result.Items, &dynamoItems)
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal dynamo registration records: %s", err))
	}

	hasNextPage := len(dynamoItems) > int(limit)

	var newCursor *string
	if hasNextPage && len(result.LastEvaluatedKey) > 0 {
		// Can't use LastEvalKey directly because we grabbed an extra item to check for next page
		lastItemGivenToUser := result.Items[len(result.Items)-2]
		lastItemKey := getKeyFromItem(result.LastEvaluatedKey, lastItemGivenToUser)
		c, err := lastEvalKeyToCursor(lastItemKey)
		if err != nil {
			panic(fmt.Sprintf("failed to make cursor from lastEvalKey: %s", err))
		}
		newCursor = &c
	}

	return registration.GetAllRegistrationsResponse{
		Data: slices.Map(dynamoItems, func(v registrationRecordDynamo) registration.RegistrationRecord {
			return dynamoToRecord(v)
		})[:min(int(limit), len(dynamoItems))],
		Cursor:      newCursor,
		HasNextPage: hasNextPage,
	}, nil
}

// MarkRegistrationConfirmed settles a pending registration (bank transfer
// received). The condition enforces the pending -> confirmed transition; a
// record in any other state fails closed.
func (d *DB) MarkRegistrationConfirmed(ctx context.Context, email string) error {
	expr := exprMustBuild(expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists().
			And(expression.Name("Status").Equal(expression.Value(registration.STATUS_PENDING)))).
		WithUpdate(expression.Set(expression.Name("Status"), expression.Value(registration.STATUS_CONFIRMED)).
			Set(expression.Name("PaymentStatus"), expression.Value(registration.PAYMENT_STATUS_PAID))))

	_, err := d.dynamoClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: attendeePK(email)},
			"SK": &types.AttributeValueMemberS{Value: attendeeSK()},
		},
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		UpdateExpression:          expr.Update(),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return registration.NewInvalidStatusTransitionError(fmt.Sprintf("Registration for email %q does not exist or is not pending", email), err)
		}
		return registration.NewFailedToWriteError("Failed UpdateItem call", err)
	}

	return nil
}
