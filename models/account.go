package models

import (
	"context"
	"errors"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Account struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null;index:uniq_acct_code,unique" json:"business_id"`
	Code            string          `gorm:"size:100;not null;index:uniq_acct_code,unique" json:"code" binding:"required"`
	Name            string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	MainType        AccountMainType `gorm:"type:enum('Asset','Liability','Equity','Revenue','Expense');default:'Expense';index;size:10;not null" json:"main_type" binding:"required"`
	ParentAccountId int             `gorm:"index" json:"parent_account_id"`
	Description     string          `gorm:"type:text" json:"description"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
	// IsBankLinked marks GL accounts that mirror an external bank account;
	// reconciliation sessions hang off these.
	IsBankLinked *bool     `gorm:"not null;default:false" json:"is_bank_linked"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a Account) GetId() int {
	return a.ID
}

type NewAccount struct {
	Code            string          `json:"code" binding:"required"`
	Name            string          `json:"name" binding:"required"`
	MainType        AccountMainType `json:"main_type" binding:"required"`
	ParentAccountId int             `json:"parent_account_id"`
	Description     string          `json:"description"`
	IsBankLinked    *bool           `json:"is_bank_linked"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewAccount) validate(ctx context.Context, businessId string, id int) error {
	if !input.MainType.Valid() {
		return errors.New("invalid account main type")
	}
	if id > 0 {
		if id == input.ParentAccountId {
			return errors.New("self-parent not allowed")
		}
		if err := utils.ValidateResourceId[Account](ctx, businessId, id); err != nil {
			return err
		}
	}
	// code unique within tenant
	if err := utils.ValidateUnique[Account](ctx, businessId, "code", input.Code, id); err != nil {
		return err
	}
	if input.ParentAccountId > 0 {
		if err := utils.ValidateResourceId[Account](ctx, businessId, input.ParentAccountId); err != nil {
			return errors.New("parent not found")
		}
	}
	return nil
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	account := Account{
		BusinessId:      businessId,
		Code:            input.Code,
		Name:            input.Name,
		MainType:        input.MainType,
		ParentAccountId: input.ParentAccountId,
		Description:     input.Description,
		IsActive:        utils.NewTrue(),
		IsBankLinked:    input.IsBankLinked,
	}
	if account.IsBankLinked == nil {
		account.IsBankLinked = utils.NewFalse()
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func UpdateAccount(ctx context.Context, id int, input *NewAccount) (*Account, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	account, err := utils.FetchModel[Account](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// main type is immutable once the account has posted lines
	if input.MainType != account.MainType {
		var count int64
		if err := db.WithContext(ctx).Model(&JournalEntry{}).Where("account_id = ?", account.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, errors.New("not allowed to change account type when ledger entries exist")
		}
	}

	updates := map[string]interface{}{
		"Code":        input.Code,
		"Name":        input.Name,
		"MainType":    input.MainType,
		"Description": input.Description,
	}
	if input.ParentAccountId > 0 {
		updates["ParentAccountId"] = input.ParentAccountId
	}
	if input.IsBankLinked != nil {
		updates["IsBankLinked"] = input.IsBankLinked
	}

	err = db.WithContext(ctx).Model(&account).Updates(updates).Error
	if err != nil {
		return nil, err
	}
	_ = config.DeleteRedisKey(accountCacheKey(businessId, id))

	return account, nil
}

func MarkAccountActive(ctx context.Context, id int, isActive bool) (*Account, error) {

	db := config.GetDB()
	var main *Account

	err := db.WithContext(ctx).First(&main, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	tx := db.Begin()
	err = markChildAccountsActive(tx, ctx, main, isActive)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	_ = config.DeleteRedisKey(accountCacheKey(main.BusinessId, main.ID))
	return main, nil
}

func markChildAccountsActive(tx *gorm.DB, ctx context.Context, main *Account, isActive bool) error {
	err := tx.WithContext(ctx).Model(&main).Updates(Account{
		IsActive: &isActive,
	}).Error
	if err != nil {
		return err
	}

	// find & update child accounts
	var children []*Account
	err = tx.WithContext(ctx).Where("parent_account_id = ?", main.ID).Find(&children).Error
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := markChildAccountsActive(tx, ctx, child, isActive); err != nil {
			return err
		}
	}
	return nil
}

func DeleteAccount(ctx context.Context, id int) (*Account, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()

	result, err := utils.FetchModel[Account](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&Account{}).
		Where("parent_account_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("this account has child account(s)")
	}

	if err := db.WithContext(ctx).Model(&JournalEntry{}).
		Where("account_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("this account has ledger entries")
	}

	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	_ = config.DeleteRedisKey(accountCacheKey(businessId, id))

	return result, nil
}

func accountCacheKey(businessId string, id int) string {
	return "Account:" + businessId + ":" + strconv.Itoa(id)
}

// GetAccount reads through a short-lived redis cache. Writers invalidate the
// key; a cold or unavailable cache falls back to the database.
func GetAccount(ctx context.Context, id int) (*Account, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var cached Account
	if exists, err := config.GetRedisObject(accountCacheKey(businessId, id), &cached); err == nil && exists {
		return &cached, nil
	}

	account, err := utils.FetchModel[Account](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	_ = config.SetRedisObject(accountCacheKey(businessId, id), account, 5*time.Minute)
	return account, nil
}

func GetActiveAccounts(ctx context.Context) ([]*Account, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Account
	err := db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessId, true).
		Order("code").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetAccountClosingBalance reads the latest completed daily balance row.
// Falls back to zero for accounts with no history yet.
func GetAccountClosingBalance(ctx context.Context, accountId int) (*decimal.Decimal, error) {
	db := config.GetDB()
	var result DailyBalance

	err := db.WithContext(ctx).Where("account_id = ?", accountId).
		Order("balance_date DESC").First(&result).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zero := decimal.New(0, 0)
			return &zero, nil
		}
		return nil, err
	}

	return &result.ClosingBalance, nil
}
