package mempool

import "github.com/godanchain/node/metrics"

var (
	mempoolInboundTransactions         = metrics.GetOrRegisterCounter("mempool/inbound_transactions")
	mempoolRejectedInboundTransactions = metrics.GetOrRegisterCounter("mempool/rejected_inbound_transactions")
	mempoolUnconfirmedPoolSize         = metrics.GetOrRegisterGauge("mempool/unconfirmed_pool_size")
	mempoolReorgPoolSize               = metrics.GetOrRegisterGauge("mempool/reorg_pool_size")
)

func recordPoolSizes(stats Stats) {
	mempoolUnconfirmedPoolSize.Update(int64(stats.UnconfirmedTxs))
	mempoolReorgPoolSize.Update(int64(stats.ReorgTxs))
}
