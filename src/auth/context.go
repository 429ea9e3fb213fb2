package auth

import (
	"context"

	"signalengine/src/model"
)

type contextKey string

const UserKey contextKey = "user"
const AccountKey contextKey = "account"

func GetUserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserKey).(*model.User)
	return user, ok
}

func GetAccountFromContext(ctx context.Context) (*model.TradingAccount, bool) {
	account, ok := ctx.Value(AccountKey).(*model.TradingAccount)
	return account, ok
}
