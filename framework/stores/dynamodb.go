package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// Schema of the DynamoDB table
	tablePartitionKey = "namespace"
	tableSortKey      = "key"
	itemAttribute     = "item"

	DefaultDynamoDBTable  = "async-test-harness"
	DefaultDynamoDBRegion = "us-east-1"

	tableWaitTimeout = time.Minute
)

type DynamoDBStore struct {
	client   *dynamodb.Client
	table    string
	endpoint string
}

// NewDynamoDBStore creates a client using the default AWS credential chain. An empty endpoint
// means the regular AWS endpoint for region.
func NewDynamoDBStore(ctx context.Context, table, region, endpoint string) (*DynamoDBStore, error) {
	if table == "" {
		table = DefaultDynamoDBTable
	}
	if region == "" {
		region = DefaultDynamoDBRegion
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &DynamoDBStore{client: client, table: table, endpoint: endpoint}, nil
}

func (d *DynamoDBStore) Type() Type { return DynamoDB }

func (d *DynamoDBStore) DSN() string {
	return d.endpoint
}

// Reset drops the table and creates it again, empty.
func (d *DynamoDBStore) Reset(ctx context.Context) error {
	_, err := d.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(d.table)})
	var notFound *types.ResourceNotFoundException
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("deleting table %s: %w", d.table, err)
	}
	if err == nil {
		if err := dynamodb.NewTableNotExistsWaiter(d.client).Wait(ctx,
			&dynamodb.DescribeTableInput{TableName: aws.String(d.table)}, tableWaitTimeout); err != nil {
			return err
		}
	}

	_, err = d.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(tablePartitionKey), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(tableSortKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(tablePartitionKey), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(tableSortKey), KeyType: types.KeyTypeRange},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(1),
			WriteCapacityUnits: aws.Int64(1),
		},
		TableName: aws.String(d.table),
	})
	if err != nil {
		return fmt.Errorf("creating table %s: %w", d.table, err)
	}
	return dynamodb.NewTableExistsWaiter(d.client).Wait(ctx,
		&dynamodb.DescribeTableInput{TableName: aws.String(d.table)}, tableWaitTimeout)
}

func (d *DynamoDBStore) WriteData(ctx context.Context, key string, data map[string]string) error {
	for k, v := range data {
		_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(d.table),
			Item: map[string]types.AttributeValue{
				tablePartitionKey: &types.AttributeValueMemberS{Value: key},
				tableSortKey:      &types.AttributeValueMemberS{Value: k},
				itemAttribute:     &types.AttributeValueMemberS{Value: v},
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *DynamoDBStore) ReadData(ctx context.Context, key string) (map[string]string, error) {
	ret := make(map[string]string)
	paginator := dynamodb.NewQueryPaginator(d.client, &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		ConsistentRead:         aws.Bool(true),
		KeyConditionExpression: aws.String("#ns = :ns"),
		ExpressionAttributeNames: map[string]string{
			"#ns": tablePartitionKey,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ns": &types.AttributeValueMemberS{Value: key},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			k, _ := item[tableSortKey].(*types.AttributeValueMemberS)
			v, _ := item[itemAttribute].(*types.AttributeValueMemberS)
			if k != nil && v != nil {
				ret[k.Value] = v.Value
			}
		}
	}
	return ret, nil
}

// Close does nothing; the SDK client has no explicit shutdown.
func (d *DynamoDBStore) Close() error { return nil }
