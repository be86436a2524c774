package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]*string
	calls  int
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[*in.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: v}, nil
}

func TestGetSecret_CachesUntilTTL(t *testing.T) {
	api := &fakeSecrets{values: map[string]*string{"saeum/STRIPE": sdkaws.String(`{"STRIPE_SECRET_KEY":"sk_test_1"}`)}}
	sc := newSecretsClient(api, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sc.now = func() time.Time { return now }

	_, err := sc.GetSecret(context.Background(), "saeum/STRIPE")
	require.NoError(t, err)
	_, err = sc.GetSecret(context.Background(), "saeum/STRIPE")
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)

	// a rotated key is seen once the entry expires
	api.values["saeum/STRIPE"] = sdkaws.String(`{"STRIPE_SECRET_KEY":"sk_test_2"}`)
	now = now.Add(2 * time.Minute)
	m, err := sc.GetSecretJSON(context.Background(), "saeum/STRIPE")
	require.NoError(t, err)
	assert.Equal(t, "sk_test_2", m["STRIPE_SECRET_KEY"])
	assert.Equal(t, 2, api.calls)
}

func TestGetSecretJSON_RDSStyleSecret(t *testing.T) {
	api := &fakeSecrets{values: map[string]*string{
		"rds":    sdkaws.String(`{"username":"saeum","password":"p\"w","port":5432,"host":"db.internal","dbname":null}`),
		"nested": sdkaws.String(`{"db":{"host":"x"}}`),
		"binary": nil,
	}}
	sc := newSecretsClient(api, time.Minute)

	m, err := sc.GetSecretJSON(context.Background(), "rds")
	require.NoError(t, err)
	assert.Equal(t, "saeum", m["username"])
	assert.Equal(t, `p"w`, m["password"])
	assert.Equal(t, "5432", m["port"])
	assert.NotContains(t, m, "dbname")

	_, err = sc.GetSecretJSON(context.Background(), "nested")
	assert.Error(t, err)
	_, err = sc.GetSecret(context.Background(), "binary")
	assert.ErrorContains(t, err, "no string value")
	_, err = sc.GetSecret(context.Background(), "missing")
	assert.Error(t, err)
}
