package model

import "time"

// OrderStatus 注文ステータス
type OrderStatus string

const (
	StatusNew        OrderStatus = "未処理"
	StatusProcessing OrderStatus = "処理中"
	StatusShipped    OrderStatus = "出荷済み"
	StatusCancelled  OrderStatus = "キャンセル"
)

// Orderer 注文者情報
type Orderer struct {
	CustomerLastName      string `json:"customerLastName" toml:"last_name"`
	CustomerFirstName     string `json:"customerFirstName" toml:"first_name"`
	CustomerLastNameKana  string `json:"customerLastNameKana" toml:"-"`
	CustomerFirstNameKana string `json:"customerFirstNameKana" toml:"-"`
	CustomerCompany       string `json:"customerCompany" toml:"company"`
	CustomerEmail         string `json:"customerEmail" toml:"email"`
	CustomerPhone         string `json:"customerPhone" toml:"phone"`
	CustomerZipCode       string `json:"customerZipCode" toml:"zip_code"`
	CustomerPrefecture    string `json:"customerPrefecture" toml:"prefecture"`
	CustomerCity          string `json:"customerCity" toml:"city"`
	CustomerAddress       string `json:"customerAddress" toml:"address"`
	CustomerBuilding      string `json:"customerBuilding" toml:"building"`
}

// Product 商品情報
type Product struct {
	ProductCode   string `json:"productCode" toml:"code"`
	ProductName   string `json:"productName" toml:"name"`
	UnitPrice     int    `json:"unitPrice" toml:"unit_price"`
	Quantity      int    `json:"quantity" toml:"quantity"`
	PaymentMethod string `json:"paymentMethod" toml:"payment_method"`
}

// Recipient お届け先情報
type Recipient struct {
	RecipientLastName      string `json:"recipientLastName"`
	RecipientFirstName     string `json:"recipientFirstName"`
	RecipientLastNameKana  string `json:"recipientLastNameKana"`
	RecipientFirstNameKana string `json:"recipientFirstNameKana"`
	RecipientZipCode       string `json:"recipientZipCode"`
	RecipientPrefecture    string `json:"recipientPrefecture"`
	RecipientCity          string `json:"recipientCity"`
	RecipientAddress       string `json:"recipientAddress"`
	RecipientBuilding      string `json:"recipientBuilding"`
	RecipientPhone         string `json:"recipientPhone"`
}

// FullName 姓と名をそのまま連結した照合用の名前
func (r Recipient) FullName() string {
	return r.RecipientLastName + r.RecipientFirstName
}

// OrderPayload 注文ストアへ送信する注文データ
type OrderPayload struct {
	OrderNumber  string `json:"orderNumber,omitempty"`
	OrderDate    string `json:"orderDate"`
	DeliveryDate string `json:"deliveryDate"`
	DeliveryTime string `json:"deliveryTime"`

	Orderer
	Recipient
	Product

	OrderRemarks string `json:"orderRemarks"`
}

// Order 注文ストアに保存済みの注文
type Order struct {
	OrderKey string      `json:"orderKey"`
	Status   OrderStatus `json:"status"`

	OrderPayload

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrderFilter 注文一覧の絞り込み条件
type OrderFilter struct {
	Status     OrderStatus `json:"status,omitempty"`
	SearchText string      `json:"searchText,omitempty"`
}

// Statistics ステータス別の注文件数
type Statistics struct {
	Total      int `json:"total"`
	New        int `json:"new"`
	Processing int `json:"processing"`
	Shipped    int `json:"shipped"`
	Cancelled  int `json:"cancelled"`
}

// DefaultOrderer 取り込み時に設定する注文者の既定値
func DefaultOrderer() Orderer {
	return Orderer{
		CustomerLastName:  "一般社団法人",
		CustomerFirstName: "BeDelivery",
		CustomerEmail:     "tokyoflowerco.ltd@gmail.com",
	}
}

// DefaultProduct 取り込み時に設定する商品の既定値
func DefaultProduct() Product {
	return Product{
		ProductCode:   "ar5500",
		ProductName:   "おまかせ生花アレンジ",
		UnitPrice:     5500,
		Quantity:      1,
		PaymentMethod: "店頭払い",
	}
}
